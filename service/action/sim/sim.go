// Package sim holds helpers shared by the simulated backend systems.
package sim

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// DefaultStoreCount is the nationwide store count.
const DefaultStoreCount = 2847

var namespace = uuid.MustParse("6f3c1c2e-54a1-4c55-9a0e-8d7b6f1f2a10")

// Code returns a stable identifier such as SKU-1A2B3C4D for the given seed values.
func Code(prefix string, size int, seed ...interface{}) string {
	id := uuid.NewSHA1(namespace, []byte(fmt.Sprint(seed...)))
	hex := strings.ToUpper(strings.ReplaceAll(id.String(), "-", ""))
	if size > len(hex) {
		size = len(hex)
	}
	return prefix + "-" + hex[:size]
}

// Stores returns count when positive, otherwise the nationwide default.
func Stores(count int) int {
	if count > 0 {
		return count
	}
	return DefaultStoreCount
}

// Round2 rounds to two decimal places.
func Round2(value float64) float64 {
	if value < 0 {
		return -float64(int64(-value*100+0.5)) / 100
	}
	return float64(int64(value*100+0.5)) / 100
}
