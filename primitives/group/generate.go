package group

import (
	"crypto/rand"
	"fmt"
	"math/big"

	log "github.com/sirupsen/logrus"

	"github.com/openaudit/go-electioncrypt/progress"
)

// Generate produces fresh domain parameters with a modulus of the given
// bit size by rejection sampling: draw a prime q of bits-1 bits, accept
// when p = 2q+1 is also prime, then find a generator of the order-q
// subgroup by raising random elements to the cofactor power until a
// non-identity result appears.
//
// The modulus is a safe prime, so the order-q subgroup is exactly the
// quadratic residues of Z_p^*. The blockcodec package depends on that
// shape to lift byte blocks into the subgroup.
//
// The search is bounded by cfg.MaxAttempts; exhausting the budget fails
// with InvalidDomainError rather than blocking forever. The optional
// reporter is told about attempt progress.
func Generate(bits int, cfg Config, rep progress.Reporter) (*Parameters, error) {
	cfg = cfg.withDefaults()

	if bits < cfg.MinBits {
		return nil, &InvalidDomainError{
			Reason: fmt.Sprintf("modulus size %d below configured minimum %d", bits, cfg.MinBits),
		}
	}
	if bits%8 != 0 {
		return nil, &InvalidDomainError{
			Reason: fmt.Sprintf("modulus size %d is not a multiple of 8", bits),
		}
	}

	logger := log.WithFields(log.Fields{"bits": bits})

	p, q, err := generateSafePrime(bits, cfg, rep, logger)
	if err != nil {
		return nil, err
	}

	g, err := findGenerator(p, q, cfg)
	if err != nil {
		return nil, err
	}

	logger.Debug("generated domain parameters")

	return &Parameters{P: p, Q: q, G: g}, nil
}

func generateSafePrime(bits int, cfg Config, rep progress.Reporter, logger *log.Entry) (p, q *big.Int, err error) {
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		progress.Report(rep, attempt, cfg.MaxAttempts)

		q, err = rand.Prime(rand.Reader, bits-1)
		if err != nil {
			return nil, nil, &InvalidDomainError{Reason: "random prime generation failed: " + err.Error()}
		}

		p = new(big.Int).Lsh(q, 1)
		p.Add(p, bigOne)
		if p.BitLen() != bits {
			continue
		}
		if !p.ProbablyPrime(cfg.PrimalityRounds) {
			continue
		}
		// rand.Prime already performed a primality test on q, but not
		// necessarily with the confidence the caller configured.
		if !q.ProbablyPrime(cfg.PrimalityRounds) {
			continue
		}

		logger.WithFields(log.Fields{"attempts": attempt}).Debug("found safe prime")
		return p, q, nil
	}

	return nil, nil, &InvalidDomainError{
		Reason: fmt.Sprintf("no safe prime of %d bits found within %d attempts", bits, cfg.MaxAttempts),
	}
}

// findGenerator raises random elements of Z_p^* to the cofactor power
// (p-1)/q. The result always lies in the order-q subgroup, and since q
// is prime any non-identity result generates the whole subgroup.
func findGenerator(p, q *big.Int, cfg Config) (*big.Int, error) {
	pMinus1 := new(big.Int).Sub(p, bigOne)
	cofactor := new(big.Int).Div(pMinus1, q)

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		h, err := rand.Int(rand.Reader, new(big.Int).Sub(pMinus1, bigTwo))
		if err != nil {
			return nil, &InvalidDomainError{Reason: "random element generation failed: " + err.Error()}
		}
		h.Add(h, bigTwo) // h in [2, p-1]

		g := new(big.Int).Exp(h, cofactor, p)
		if g.Cmp(bigOne) != 0 {
			return g, nil
		}
	}

	return nil, &InvalidDomainError{
		Reason: fmt.Sprintf("no generator found within %d attempts", cfg.MaxAttempts),
	}
}
