package domain

import "crypto/rand"

// codeAlphabet is base58-like: no 0/O, I/l or other lookalikes, so codes
// survive being read over the phone or typed from a printout.
const codeAlphabet = "23456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

// CodeLength is the length of user-facing submission codes.
const CodeLength = 10

// NewSubmissionCode returns a fresh random user-facing code. Uniqueness is
// enforced by the store; callers retry on ErrDuplicateCode.
func NewSubmissionCode() string {
	buf := make([]byte, CodeLength)
	if _, err := rand.Read(buf); err != nil {
		panic("code generation: " + err.Error())
	}
	out := make([]byte, CodeLength)
	for i, b := range buf {
		out[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(out)
}
