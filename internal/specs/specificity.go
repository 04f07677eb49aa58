package specs

// noSpecificity ranks the absence of a spec below every real spec.
const noSpecificity = 99

// Specificity ranks a spec from most (0) to least specific. A nil spec ranks
// last.
func Specificity(s AddressSpec) int {
	if s == nil {
		return noSpecificity
	}
	return s.specificity()
}

// MoreSpecific returns whichever of a and b is more specific. When only one
// is non-nil it is returned. Specs of equal rank are ordered by canonical
// string, so the result does not depend on argument order.
//
// Passing two nil specs is a programming error.
func MoreSpecific(a, b AddressSpec) AddressSpec {
	if a == nil && b == nil {
		panic("internal error: both specs provided to MoreSpecific() were nil")
	}

	ra, rb := Specificity(a), Specificity(b)
	switch {
	case ra < rb:
		return a
	case rb < ra:
		return b
	case b.SpecString() < a.SpecString():
		return b
	default:
		return a
	}
}
