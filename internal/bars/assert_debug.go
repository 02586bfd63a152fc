// SPDX-License-Identifier: MIT

//go:build debug

package bars

import (
	"fmt"
	"math"
)

func assertNotNaN(v float64, what string) {
	if math.IsNaN(v) {
		panic(fmt.Sprintf("bars: %s is NaN", what))
	}
}
