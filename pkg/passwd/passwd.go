// Package passwd manages the aund password file.
//
// Each line is "user:hash:urd[:opt4]". User names compare
// case-insensitively. An empty hash accepts only the empty password. The
// file is never edited in place: every change writes "<file>.tmp" and
// renames it over the original.
package passwd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"github.com/marmos91/aund/internal/logger"
)

var (
	// ErrBadPassword is returned when a password does not match.
	ErrBadPassword = errors.New("passwd: wrong password")

	// ErrNoSuchUser is returned for unknown user names.
	ErrNoSuchUser = errors.New("passwd: no such user")

	// ErrUserExists is returned by Add for a name already present.
	ErrUserExists = errors.New("passwd: user already exists")

	// ErrInvalidName is returned for names the file format cannot hold.
	ErrInvalidName = errors.New("passwd: invalid user name")
)

// Account is one password file entry.
type Account struct {
	User string
	Hash string
	URD  string
	Opt4 uint8
}

// HasPassword reports whether the account needs a non-empty password.
func (a Account) HasPassword() bool {
	return a.Hash != ""
}

// File is a password file with an in-memory copy of its entries.
type File struct {
	path        string
	defaultOpt4 uint8

	mu       sync.RWMutex
	accounts []Account
}

// Open reads the password file at path. Entries without a boot option get
// defaultOpt4.
func Open(path string, defaultOpt4 uint8) (*File, error) {
	f := &File{path: path, defaultOpt4: defaultOpt4}
	if err := f.Reload(); err != nil {
		return nil, err
	}
	return f, nil
}

// Path returns the file's location.
func (f *File) Path() string {
	return f.path
}

// Reload re-reads the file from disk.
func (f *File) Reload() error {
	accounts, err := f.read()
	if err != nil {
		return err
	}
	f.mu.Lock()
	f.accounts = accounts
	f.mu.Unlock()
	return nil
}

// Accounts returns a copy of every entry, in file order.
func (f *File) Accounts() []Account {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]Account, len(f.accounts))
	copy(out, f.accounts)
	return out
}

// Lookup finds an account by name.
func (f *File) Lookup(user string) (Account, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if i := find(f.accounts, user); i >= 0 {
		return f.accounts[i], nil
	}
	return Account{}, ErrNoSuchUser
}

// Validate checks a login. The returned account carries the user name as
// spelled in the file.
func (f *File) Validate(user, password string) (Account, error) {
	acct, err := f.Lookup(user)
	if err != nil {
		return Account{}, err
	}
	if !Verify(acct.Hash, password) {
		return Account{}, ErrBadPassword
	}
	return acct, nil
}

// Change replaces user's password after checking the old one.
func (f *File) Change(user, oldPassword, newPassword string) error {
	hash, err := Hash(newPassword)
	if err != nil {
		return err
	}
	return f.update(func(accounts []Account) ([]Account, error) {
		i := find(accounts, user)
		if i < 0 {
			return nil, ErrNoSuchUser
		}
		if !Verify(accounts[i].Hash, oldPassword) {
			return nil, ErrBadPassword
		}
		accounts[i].Hash = hash
		return accounts, nil
	})
}

// SetPassword replaces user's password without checking the old one.
func (f *File) SetPassword(user, password string) error {
	hash, err := Hash(password)
	if err != nil {
		return err
	}
	return f.update(func(accounts []Account) ([]Account, error) {
		i := find(accounts, user)
		if i < 0 {
			return nil, ErrNoSuchUser
		}
		accounts[i].Hash = hash
		return accounts, nil
	})
}

// SetOpt4 changes user's boot option.
func (f *File) SetOpt4(user string, opt4 uint8) error {
	return f.update(func(accounts []Account) ([]Account, error) {
		i := find(accounts, user)
		if i < 0 {
			return nil, ErrNoSuchUser
		}
		accounts[i].Opt4 = opt4
		return accounts, nil
	})
}

// Add appends a new account with the given password.
func (f *File) Add(user, password, urd string, opt4 uint8) error {
	if user == "" || strings.ContainsAny(user, ": \n") || strings.ContainsAny(urd, ":\n") {
		return ErrInvalidName
	}
	hash, err := Hash(password)
	if err != nil {
		return err
	}
	return f.update(func(accounts []Account) ([]Account, error) {
		if find(accounts, user) >= 0 {
			return nil, ErrUserExists
		}
		return append(accounts, Account{User: user, Hash: hash, URD: urd, Opt4: opt4}), nil
	})
}

// Remove deletes an account.
func (f *File) Remove(user string) error {
	return f.update(func(accounts []Account) ([]Account, error) {
		i := find(accounts, user)
		if i < 0 {
			return nil, ErrNoSuchUser
		}
		return append(accounts[:i], accounts[i+1:]...), nil
	})
}

// Hash hashes a new password. The empty password is stored as an empty
// hash.
func Hash(password string) (string, error) {
	if password == "" {
		return "", nil
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(h), nil
}

// Verify checks password against a stored hash. bcrypt and SHA-512 crypt
// hashes are understood.
func Verify(hash, password string) bool {
	switch {
	case hash == "":
		return password == ""
	case strings.HasPrefix(hash, "$2"):
		return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
	case strings.HasPrefix(hash, sha512Prefix):
		return verifySHA512Crypt(hash, password)
	default:
		logger.Warn("Unsupported password hash scheme", "scheme", schemeOf(hash))
		return false
	}
}

// update applies fn to a fresh read of the file and writes the result.
func (f *File) update(fn func([]Account) ([]Account, error)) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	accounts, err := f.read()
	if err != nil {
		return err
	}
	accounts, err = fn(accounts)
	if err != nil {
		return err
	}
	if err := f.write(accounts); err != nil {
		return err
	}
	f.accounts = accounts
	return nil
}

func (f *File) read() ([]Account, error) {
	fp, err := os.Open(f.path)
	if err != nil {
		return nil, fmt.Errorf("open password file: %w", err)
	}
	defer fp.Close()
	return Parse(fp, f.defaultOpt4)
}

// Parse reads password file lines from r.
func Parse(r io.Reader, defaultOpt4 uint8) ([]Account, error) {
	var accounts []Account
	scanner := bufio.NewScanner(r)
	lineno := 0
	for scanner.Scan() {
		lineno++
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, ":", 4)
		if len(parts) < 3 {
			return nil, fmt.Errorf("password file line %d: malformed", lineno)
		}
		acct := Account{User: parts[0], Hash: parts[1], URD: parts[2], Opt4: defaultOpt4}
		if len(parts) == 4 {
			n, err := strconv.Atoi(strings.TrimSpace(parts[3]))
			if err != nil || n < 0 || n > 255 {
				return nil, fmt.Errorf("password file line %d: bad boot option %q", lineno, parts[3])
			}
			acct.Opt4 = uint8(n)
		}
		accounts = append(accounts, acct)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return accounts, nil
}

func (f *File) write(accounts []Account) error {
	tmp := f.path + ".tmp"
	fp, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("create %s: %w", tmp, err)
	}

	w := bufio.NewWriter(fp)
	for _, a := range accounts {
		fmt.Fprintf(w, "%s:%s:%s:%d\n", a.User, a.Hash, a.URD, a.Opt4)
	}
	if err := w.Flush(); err != nil {
		_ = fp.Close()
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := fp.Sync(); err != nil {
		_ = fp.Close()
		return fmt.Errorf("sync %s: %w", tmp, err)
	}
	if err := fp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("%s -> %s: %w", tmp, f.path, err)
	}
	return nil
}

func find(accounts []Account, user string) int {
	for i := range accounts {
		if strings.EqualFold(accounts[i].User, user) {
			return i
		}
	}
	return -1
}

func schemeOf(hash string) string {
	if strings.HasPrefix(hash, "$") {
		if i := strings.IndexByte(hash[1:], '$'); i >= 0 {
			return hash[:i+2]
		}
	}
	return "des"
}
