// Package group implements the validated multiplicative-group domain
// parameters (p, q, g) that every other primitive in this library is
// built over: p and q prime, q | p-1, and g a generator of the order-q
// subgroup of Z_p^*. Parameters are immutable once validated and are
// shared by reference; there is no process-wide cryptosystem state.
package group

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

var (
	bigOne = big.NewInt(1)
	bigTwo = big.NewInt(2)
)

// Config bounds validation and generation.
type Config struct {
	// PrimalityRounds is the number of Miller-Rabin rounds used when
	// checking p and q. Zero means DefaultPrimalityRounds.
	PrimalityRounds int

	// MaxAttempts bounds the rejection-sampling loops during Generate.
	// Zero means DefaultMaxAttempts.
	MaxAttempts int

	// MinBits is the minimum accepted modulus size for Generate.
	// Zero means DefaultMinBits.
	MinBits int
}

const (
	// DefaultPrimalityRounds gives a false-positive probability of at
	// most 4^-64 per prime.
	DefaultPrimalityRounds = 64

	// DefaultMaxAttempts bounds the safe-prime search. The expected
	// number of attempts for n-bit primes grows with ln(2^n), so this
	// is generous for any supported size.
	DefaultMaxAttempts = 100000

	// DefaultMinBits is the smallest modulus Generate will produce.
	DefaultMinBits = 1024
)

func (c Config) withDefaults() Config {
	if c.PrimalityRounds == 0 {
		c.PrimalityRounds = DefaultPrimalityRounds
	}
	if c.MaxAttempts == 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.MinBits == 0 {
		c.MinBits = DefaultMinBits
	}
	return c
}

// InvalidDomainError reports domain parameters that fail validation, or
// a generation run that exhausted its attempt budget.
type InvalidDomainError struct {
	Reason string
}

func (e *InvalidDomainError) Error() string {
	return fmt.Sprintf("invalid domain parameters: %s", e.Reason)
}

// Parameters describes the group. All fields are treated as read-only
// after construction; use New, Generate, Parse or a predefined set to
// obtain validated parameters.
type Parameters struct {
	P *big.Int // prime modulus
	Q *big.Int // prime order of the subgroup generated by G, q | p-1
	G *big.Int // generator of the order-q subgroup
}

// New validates (p, q, g) and returns immutable parameters over copies
// of the inputs. It fails with InvalidDomainError unless p and q are
// probabilistically prime, q divides p-1, and g generates a subgroup of
// order exactly q.
func New(p, q, g *big.Int, cfg Config) (*Parameters, error) {
	cfg = cfg.withDefaults()

	if p == nil || q == nil || g == nil {
		return nil, &InvalidDomainError{Reason: "nil parameter"}
	}
	if p.Sign() <= 0 || q.Sign() <= 0 {
		return nil, &InvalidDomainError{Reason: "modulus and order must be positive"}
	}
	if !p.ProbablyPrime(cfg.PrimalityRounds) {
		return nil, &InvalidDomainError{Reason: "modulus p is not prime"}
	}
	if !q.ProbablyPrime(cfg.PrimalityRounds) {
		return nil, &InvalidDomainError{Reason: "subgroup order q is not prime"}
	}

	pMinus1 := new(big.Int).Sub(p, bigOne)
	if new(big.Int).Mod(pMinus1, q).Sign() != 0 {
		return nil, &InvalidDomainError{Reason: "q does not divide p-1"}
	}

	if g.Cmp(bigOne) <= 0 || g.Cmp(pMinus1) >= 0 {
		return nil, &InvalidDomainError{Reason: "generator out of range"}
	}
	if new(big.Int).Exp(g, q, p).Cmp(bigOne) != 0 {
		return nil, &InvalidDomainError{Reason: "generator does not have order q"}
	}

	return &Parameters{
		P: new(big.Int).Set(p),
		Q: new(big.Int).Set(q),
		G: new(big.Int).Set(g),
	}, nil
}

// IsElement reports whether x is a member of the order-q subgroup:
// x in [1, p-1] and x^q = 1 mod p. Every ciphertext component must pass
// this check before being processed; rejecting non-members prevents
// small-subgroup confinement attacks.
func (params *Parameters) IsElement(x *big.Int) bool {
	if x == nil || x.Sign() <= 0 || x.Cmp(params.P) >= 0 {
		return false
	}
	return new(big.Int).Exp(x, params.Q, params.P).Cmp(bigOne) == 0
}

// Exp returns base^exp mod p.
func (params *Parameters) Exp(base, exp *big.Int) *big.Int {
	return new(big.Int).Exp(base, exp, params.P)
}

// Mul returns a*b mod p.
func (params *Parameters) Mul(a, b *big.Int) *big.Int {
	r := new(big.Int).Mul(a, b)
	return r.Mod(r, params.P)
}

// Inverse returns a^-1 mod p.
func (params *Parameters) Inverse(a *big.Int) *big.Int {
	return new(big.Int).ModInverse(a, params.P)
}

// RandomExponent draws a uniform exponent in [1, q-1] from crypto/rand.
func (params *Parameters) RandomExponent() (*big.Int, error) {
	qMinus1 := new(big.Int).Sub(params.Q, bigOne)
	r, err := rand.Int(rand.Reader, qMinus1)
	if err != nil {
		return nil, fmt.Errorf("failed to draw random exponent: %w", err)
	}
	return r.Add(r, bigOne), nil
}

// Bits returns the size of the modulus in bits.
func (params *Parameters) Bits() int {
	return params.P.BitLen()
}

// Equal reports whether two parameter sets describe the same group.
func (params *Parameters) Equal(other *Parameters) bool {
	if other == nil {
		return false
	}
	return params.P.Cmp(other.P) == 0 &&
		params.Q.Cmp(other.Q) == 0 &&
		params.G.Cmp(other.G) == 0
}
