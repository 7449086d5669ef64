//go:build !race

package wodstrat

// DefaultPasswordCost is the bcrypt cost used for account passwords.
const DefaultPasswordCost = 12
