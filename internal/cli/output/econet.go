package output

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/marmos91/aund/internal/fileserver"
	"github.com/marmos91/aund/pkg/passwd"
)

// Opt4Name names a boot option the way *OPT 4 describes it.
func Opt4Name(opt4 uint8) string {
	switch opt4 & 3 {
	case 0:
		return "Off"
	case 1:
		return "Load"
	case 2:
		return "Run"
	default:
		return "Exec"
	}
}

// AccountList prints password file entries without their hashes.
type AccountList []passwd.Account

func (a AccountList) Headers() []string {
	return []string{"User", "URD", "Boot", "Password"}
}

func (a AccountList) Rows() [][]string {
	rows := make([][]string, 0, len(a))
	for _, acct := range a {
		pw := "set"
		if !acct.HasPassword() {
			pw = "none"
		}
		urd := acct.URD
		if urd == "" {
			urd = "$"
		}
		rows = append(rows, []string{
			acct.User,
			urd,
			fmt.Sprintf("%d (%s)", acct.Opt4, Opt4Name(acct.Opt4)),
			pw,
		})
	}
	return rows
}

// MarshalYAML keeps hashes out of machine-readable output too.
func (a AccountList) MarshalYAML() (any, error) {
	return a.public(), nil
}

// MarshalJSON keeps hashes out of machine-readable output.
func (a AccountList) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.public())
}

type publicAccount struct {
	User     string `json:"user" yaml:"user"`
	URD      string `json:"urd" yaml:"urd"`
	Opt4     uint8  `json:"opt4" yaml:"opt4"`
	Password bool   `json:"password" yaml:"password"`
}

func (a AccountList) public() []publicAccount {
	out := make([]publicAccount, 0, len(a))
	for _, acct := range a {
		out = append(out, publicAccount{User: acct.User, URD: acct.URD, Opt4: acct.Opt4, Password: acct.HasPassword()})
	}
	return out
}

// SessionList prints file server sessions.
type SessionList []fileserver.SessionInfo

func (s SessionList) Headers() []string {
	return []string{"ID", "Station", "User", "URD", "Handles", "Idle"}
}

func (s SessionList) Rows() [][]string {
	rows := make([][]string, 0, len(s))
	for _, sess := range s {
		user := sess.User
		if user == "" {
			user = "-"
		}
		rows = append(rows, []string{
			sess.ID,
			fmt.Sprintf("%d.%d", sess.Network, sess.Station),
			user,
			sess.URD,
			strconv.Itoa(sess.OpenHandles),
			time.Since(sess.LastSeen).Round(time.Second).String(),
		})
	}
	return rows
}
