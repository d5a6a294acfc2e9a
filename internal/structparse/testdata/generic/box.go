package generic

type Box[T any, K comparable] struct {
	Value T
	Key   K
}

type NotStruct int
