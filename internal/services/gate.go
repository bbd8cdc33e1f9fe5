package services

import "crypto/subtle"

// AccessGate decides whether a caller may perform admin operations.
type AccessGate interface {
	Verify(code string) bool
}

// SharedSecretGate accepts exactly one deployment-wide code. An empty secret rejects everything.
type SharedSecretGate struct {
	secret []byte
}

func NewSharedSecretGate(secret string) *SharedSecretGate {
	return &SharedSecretGate{secret: []byte(secret)}
}

func (g *SharedSecretGate) Configured() bool { return len(g.secret) > 0 }

func (g *SharedSecretGate) Verify(code string) bool {
	if !g.Configured() || code == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(code), g.secret) == 1
}
