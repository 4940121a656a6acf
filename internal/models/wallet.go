package models

import (
	"regexp"
	"strings"
)

var evmAddressRe = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// IsEVMAddress reports whether s looks like a 20-byte hex address.
func IsEVMAddress(s string) bool {
	return evmAddressRe.MatchString(s)
}

// NormalizeWallet lowercases a wallet address for storage and comparison.
func NormalizeWallet(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// MaskWallet shortens an address for display: 0x1234...abcd.
// Addresses too short to mask are returned unchanged.
func MaskWallet(s string) string {
	if len(s) < 10 {
		return s
	}
	return s[:6] + "..." + s[len(s)-4:]
}

// IsValidNetwork reports whether n is a supported settlement network.
func IsValidNetwork(n Network) bool {
	for _, known := range AllNetworks {
		if known == n {
			return true
		}
	}
	return false
}

// IsValidSlotSize reports whether s is a supported size class.
func IsValidSlotSize(s SlotSize) bool {
	for _, known := range AllSlotSizes {
		if known == s {
			return true
		}
	}
	return false
}
