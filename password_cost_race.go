//go:build race

package wodstrat

import "golang.org/x/crypto/bcrypt"

// DefaultPasswordCost drops to the bcrypt minimum under the race detector.
const DefaultPasswordCost = bcrypt.MinCost
