package utils

import (
	"testing"
)

func TestContainsString(t *testing.T) {
	table := []struct {
		slice  []string
		s      string
		result bool
	}{
		{[]string{"sda", "sdb", "sdc"}, "sdb", true},
		{[]string{"sda", "sdb", "sdc"}, "sdd", false},
	}

	for _, e := range table {
		if ContainsString(e.slice, e.s) != e.result {
			t.Errorf("ContainsString(%v, %s)", e.slice, e.s)
		}
	}
}
