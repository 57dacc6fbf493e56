package memory

import "golang.org/x/exp/constraints"

func Align[I constraints.Integer](v, a I) I {
	return (v + a - 1) &^ (a - 1)
}
