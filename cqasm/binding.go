package cqasm

import "sort"

// AliasBinding binds alias names introduced by map statements to qubit
// indices. Names are case-insensitive. A qubit may carry several aliases,
// but an alias always names one qubit.
type AliasBinding struct {
	// nameToQubit maps a lowercase alias to its qubit
	nameToQubit map[string]int
	// qubitToNames maps a qubit to the aliases naming it, in binding order
	qubitToNames map[int][]string
}

// NewAliasBinding creates an empty binding.
func NewAliasBinding() *AliasBinding {
	return &AliasBinding{
		nameToQubit:  make(map[string]int),
		qubitToNames: make(map[int][]string),
	}
}

// Bind binds name to qubit. Binding the same name to the same qubit again
// is a no-op. If the name is already bound to another qubit, that qubit is
// returned together with false.
func (b *AliasBinding) Bind(name string, qubit int) (int, bool) {
	key := lower(name)
	if prev, ok := b.nameToQubit[key]; ok {
		return prev, prev == qubit
	}

	b.nameToQubit[key] = qubit
	b.qubitToNames[qubit] = append(b.qubitToNames[qubit], key)
	return qubit, true
}

// Lookup returns the qubit an alias is bound to.
func (b *AliasBinding) Lookup(name string) (int, bool) {
	q, ok := b.nameToQubit[lower(name)]
	return q, ok
}

// Names returns the aliases of a qubit.
func (b *AliasBinding) Names(qubit int) []string {
	return append([]string(nil), b.qubitToNames[qubit]...)
}

// Len returns the number of bound aliases.
func (b *AliasBinding) Len() int {
	return len(b.nameToQubit)
}

// Aliases returns every bound alias in sorted order.
func (b *AliasBinding) Aliases() []string {
	names := make([]string, 0, len(b.nameToQubit))
	for n := range b.nameToQubit {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
