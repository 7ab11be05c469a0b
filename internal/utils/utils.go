package utils

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"math/big"
	"time"
)

func StringPtr(s string) *string {
	return &s
}

func StringPtrEq(sp *string, s string) bool {
	return sp != nil && *sp == s
}

func IntPtr(i int) *int {
	return &i
}

func TimePtr(t time.Time) *time.Time {
	return &t
}

// MapSlice applies f to every element of a and returns the results.
func MapSlice[T any, M any](a []T, f func(T) M) []M {
	n := make([]M, len(a))
	for i, e := range a {
		n[i] = f(e)
	}
	return n
}

// ConvertType marshals src to JSON and unmarshals it into D. Used to decode queue message
// payloads that arrive as generic maps.
func ConvertType[S any, D any](src S) (D, error) {
	jsonBody, err := json.Marshal(src)
	if err != nil {
		return *new(D), fmt.Errorf("converting source into json: %w", err)
	}

	var dst D
	err = json.Unmarshal(jsonBody, &dst)
	if err != nil {
		return *new(D), fmt.Errorf("converting json into destination: %w", err)
	}

	return dst, nil
}

const DefaultCharSet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// RandomString generates a cryptographically random string of the given size.
func RandomString(size int, charSetOptions ...string) (string, error) {
	charSet := DefaultCharSet
	if len(charSetOptions) > 0 {
		charSet = ""
		for _, cso := range charSetOptions {
			charSet += cso
		}
	}

	b := make([]byte, size)
	for i := range b {
		randomNumber, err := rand.Int(rand.Reader, big.NewInt(int64(len(charSet))))
		if err != nil {
			return "", fmt.Errorf("generating random number in RandomString: %w", err)
		}

		b[i] = charSet[randomNumber.Int64()]
	}

	return string(b), nil
}

// TruncateString returns a truncated version of the string keeping the start and end.
func TruncateString(str string, borderSizeToKeep int) string {
	if len(str) <= 2*borderSizeToKeep {
		return str
	}
	return str[:borderSizeToKeep] + "..." + str[len(str)-borderSizeToKeep:]
}
