package pkg

import "golang.org/x/crypto/bcrypt"

// Login codes are short-lived, so a lower cost is fine here.
const loginCodeHashCost = 10

func HashLoginCode(code string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(code), loginCodeHashCost)
	return BytesToString(bytes), err
}

func CheckLoginCodeHash(code, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(code)) == nil
}
