package group

import (
	"math/big"
	"sync"
)

// Predefined parameter sets built from the well-known MODP safe primes
// of RFC 2409. For each, q = (p-1)/2 is prime and 2 is a quadratic
// residue (p = 7 mod 8), so g = 2 generates the order-q subgroup.
// They let callers and tests use a verified group without paying for
// generation; production deployments wanting a fresh group should use
// Generate.

// RFC 2409 Second Oakley Group, 1024-bit modulus.
const oakley1024Hex = "FFFFFFFFFFFFFFFFC90FDAA22168C234C4C6628B80DC1CD1" +
	"29024E088A67CC74020BBEA63B139B22514A08798E3404DD" +
	"EF9519B3CD3A431B302B0A6DF25F14374FE1356D6D51C245" +
	"E485B576625E7EC6F44C42E9A637ED6B0BFF5CB6F406B7ED" +
	"EE386BFB5A899FA5AE9F24117C4B1FE649286651ECE65381" +
	"FFFFFFFFFFFFFFFF"

// RFC 2409 First Oakley Group, 768-bit modulus.
const oakley768Hex = "FFFFFFFFFFFFFFFFC90FDAA22168C234C4C6628B80DC1CD1" +
	"29024E088A67CC74020BBEA63B139B22514A08798E3404DD" +
	"EF9519B3CD3A431B302B0A6DF25F14374FE1356D6D51C245" +
	"E485B576625E7EC6F44C42E9A63A3620FFFFFFFFFFFFFFFF"

var (
	oakleyOnce sync.Once
	oakley768  *Parameters
	oakley1024 *Parameters
)

func initOakley() {
	oakley768 = mustFromSafePrimeHex(oakley768Hex)
	oakley1024 = mustFromSafePrimeHex(oakley1024Hex)
}

func mustFromSafePrimeHex(hex string) *Parameters {
	p, ok := new(big.Int).SetString(hex, 16)
	if !ok {
		panic("group: bad predefined modulus constant")
	}
	q := new(big.Int).Rsh(new(big.Int).Sub(p, bigOne), 1)
	params, err := New(p, q, bigTwo, Config{})
	if err != nil {
		panic("group: predefined parameters failed validation: " + err.Error())
	}
	return params
}

// Oakley768 returns the predefined 768-bit safe-prime group.
// 768-bit moduli are no longer considered strong; this set exists for
// interoperability and testing.
func Oakley768() *Parameters {
	oakleyOnce.Do(initOakley)
	return oakley768
}

// Oakley1024 returns the predefined 1024-bit safe-prime group.
func Oakley1024() *Parameters {
	oakleyOnce.Do(initOakley)
	return oakley1024
}
