package passwd

import (
	"crypto/sha512"
	"crypto/subtle"
	"strconv"
	"strings"
)

// Verification of glibc "$6$" (SHA-512 crypt) hashes, which older password
// files carry. New hashes are always bcrypt.

const (
	sha512Prefix        = "$6$"
	sha512RoundsPrefix  = "rounds="
	sha512DefaultRounds = 5000
	sha512MinRounds     = 1000
	sha512MaxRounds     = 999999999
	sha512MaxSalt       = 16
	cryptAlphabet       = "./0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"
)

// sha512Order is the byte permutation used when encoding the final digest.
var sha512Order = [...][3]int{
	{0, 21, 42}, {22, 43, 1}, {44, 2, 23}, {3, 24, 45},
	{25, 46, 4}, {47, 5, 26}, {6, 27, 48}, {28, 49, 7},
	{50, 8, 29}, {9, 30, 51}, {31, 52, 10}, {53, 11, 32},
	{12, 33, 54}, {34, 55, 13}, {56, 14, 35}, {15, 36, 57},
	{37, 58, 16}, {59, 17, 38}, {18, 39, 60}, {40, 61, 19},
	{62, 20, 41},
}

// verifySHA512Crypt reports whether password hashes to the "$6$" hash.
func verifySHA512Crypt(hash, password string) bool {
	computed, ok := sha512Crypt(password, hash)
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(computed), []byte(hash)) == 1
}

// sha512Crypt hashes password using the parameters in setting, which is a
// "$6$[rounds=N$]salt[$...]" string.
func sha512Crypt(password, setting string) (string, bool) {
	if !strings.HasPrefix(setting, sha512Prefix) {
		return "", false
	}
	rest := setting[len(sha512Prefix):]

	rounds := sha512DefaultRounds
	customRounds := false
	if strings.HasPrefix(rest, sha512RoundsPrefix) {
		end := strings.IndexByte(rest, '$')
		if end < 0 {
			return "", false
		}
		n, err := strconv.Atoi(rest[len(sha512RoundsPrefix):end])
		if err != nil {
			return "", false
		}
		rounds = min(max(n, sha512MinRounds), sha512MaxRounds)
		customRounds = true
		rest = rest[end+1:]
	}

	salt := rest
	if i := strings.IndexByte(salt, '$'); i >= 0 {
		salt = salt[:i]
	}
	if len(salt) > sha512MaxSalt {
		salt = salt[:sha512MaxSalt]
	}

	key := []byte(password)
	s := []byte(salt)

	alt := sha512.New()
	alt.Write(key)
	alt.Write(s)
	alt.Write(key)
	altSum := alt.Sum(nil)

	a := sha512.New()
	a.Write(key)
	a.Write(s)
	n := len(key)
	for ; n > 64; n -= 64 {
		a.Write(altSum)
	}
	a.Write(altSum[:n])
	for n = len(key); n > 0; n >>= 1 {
		if n&1 != 0 {
			a.Write(altSum)
		} else {
			a.Write(key)
		}
	}
	sum := a.Sum(nil)

	dp := sha512.New()
	for range key {
		dp.Write(key)
	}
	pBytes := repeatTo(dp.Sum(nil), len(key))

	ds := sha512.New()
	for i := 0; i < 16+int(sum[0]); i++ {
		ds.Write(s)
	}
	sBytes := repeatTo(ds.Sum(nil), len(s))

	for i := 0; i < rounds; i++ {
		c := sha512.New()
		if i&1 != 0 {
			c.Write(pBytes)
		} else {
			c.Write(sum)
		}
		if i%3 != 0 {
			c.Write(sBytes)
		}
		if i%7 != 0 {
			c.Write(pBytes)
		}
		if i&1 != 0 {
			c.Write(sum)
		} else {
			c.Write(pBytes)
		}
		sum = c.Sum(nil)
	}

	var out strings.Builder
	out.WriteString(sha512Prefix)
	if customRounds {
		out.WriteString(sha512RoundsPrefix)
		out.WriteString(strconv.Itoa(rounds))
		out.WriteByte('$')
	}
	out.WriteString(salt)
	out.WriteByte('$')
	for _, o := range sha512Order {
		encode24(&out, sum[o[0]], sum[o[1]], sum[o[2]], 4)
	}
	encode24(&out, 0, 0, sum[63], 2)
	return out.String(), true
}

func repeatTo(block []byte, n int) []byte {
	out := make([]byte, 0, n)
	for len(out)+len(block) <= n {
		out = append(out, block...)
	}
	return append(out, block[:n-len(out)]...)
}

func encode24(out *strings.Builder, b2, b1, b0 byte, n int) {
	w := uint(b2)<<16 | uint(b1)<<8 | uint(b0)
	for ; n > 0; n-- {
		out.WriteByte(cryptAlphabet[w&0x3f])
		w >>= 6
	}
}
