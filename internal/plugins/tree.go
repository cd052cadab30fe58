package plugins

import (
	"iter"
	"slices"

	"github.com/adeptex/whispers/internal/types"
)

// Node is one element of a parsed structured document. Structured plugins
// convert their parser output into this tree so they can share Traverse.
// A nil Node is a null value.
type Node interface {
	node()
}

// Mapping is an ordered key/value node.
type Mapping struct {
	Keys   []string
	Values []Node
}

// Sequence is an ordered list node.
type Sequence []Node

// ScalarKind separates values that become candidates from those that do not.
type ScalarKind int

const (
	ScalarString ScalarKind = iota
	ScalarInt
	// ScalarOther covers booleans, floats and timestamps.
	ScalarOther
)

// Scalar is a leaf value rendered as text.
type Scalar struct {
	Value string
	Kind  ScalarKind
}

func (*Mapping) node() {}
func (Sequence) node()  {}
func (*Scalar) node()   {}

// Str is shorthand for a string scalar.
func Str(v string) *Scalar { return &Scalar{Value: v, Kind: ScalarString} }

// Add appends an entry.
func (m *Mapping) Add(key string, value Node) {
	m.Keys = append(m.Keys, key)
	m.Values = append(m.Values, value)
}

// Get returns the value of the first entry named key.
func (m *Mapping) Get(key string) (Node, bool) {
	i := slices.Index(m.Keys, key)
	if i < 0 {
		return nil, false
	}
	return m.Values[i], true
}

// candidate reports whether n is a scalar that is emitted as a pair value.
func candidate(n Node) (*Scalar, bool) {
	s, ok := n.(*Scalar)
	if !ok || s == nil || s.Kind == ScalarOther {
		return nil, false
	}
	return s, true
}

// Traverse walks doc depth-first in document order and yields a candidate for
// every scalar under a mapping key or inside a list, plus the special forms
// recognised in structured documents.
func Traverse(doc Node) iter.Seq[types.KeyValuePair] {
	return func(yield func(types.KeyValuePair) bool) {
		walk(doc, nil, "", yield)
	}
}

func walk(n Node, keypath []string, key string, yield func(types.KeyValuePair) bool) bool {
	switch n := n.(type) {
	case *Mapping:
		if n == nil {
			return true
		}
		if len(keypath) == 0 && !cloudFormation(n, yield) {
			return false
		}
		for i, k := range n.Keys {
			kp := append(slices.Clip(keypath), k)
			v := n.Values[i]
			if s, ok := candidate(v); ok {
				if !yield(types.NewPair(k, s.Value, kp...)) {
					return false
				}
			}
			if !walk(v, kp, k, yield) {
				return false
			}
		}
		// {key: name, value: secret}
		kn, okk := n.Get("key")
		vn, okv := n.Get("value")
		if okk && okv {
			ks, ok1 := candidate(kn)
			vs, ok2 := candidate(vn)
			if ok1 && ok2 && !yield(types.NewPair(ks.Value, vs.Value, keypath...)) {
				return false
			}
		}
	case Sequence:
		for _, item := range n {
			if s, ok := candidate(item); ok {
				if !yield(types.NewPair(key, s.Value, keypath...)) {
					return false
				}
			}
			if !walk(item, keypath, key, yield) {
				return false
			}
		}
	case *Scalar:
		if n == nil || n.Kind != ScalarString {
			return true
		}
		for p := range ShellVariables([]string{n.Value}, 0) {
			if !yield(p) {
				return false
			}
		}
		for p := range CommonPairs(n.Value, keypath, 0) {
			if !yield(p) {
				return false
			}
		}
	}
	return true
}

// cloudFormation yields Parameters.<name>.Default of an AWS CloudFormation
// template root.
func cloudFormation(root *Mapping, yield func(types.KeyValuePair) bool) bool {
	if _, ok := root.Get("AWSTemplateFormatVersion"); !ok {
		return true
	}
	params, ok := root.Get("Parameters")
	if !ok {
		return true
	}
	pm, ok := params.(*Mapping)
	if !ok || pm == nil {
		return true
	}
	for i, name := range pm.Keys {
		param, ok := pm.Values[i].(*Mapping)
		if !ok || param == nil {
			continue
		}
		def, ok := param.Get("Default")
		if !ok {
			continue
		}
		s, ok := candidate(def)
		if !ok {
			continue
		}
		if !yield(types.NewPair(name, s.Value, "Parameters", "Default", name)) {
			return false
		}
	}
	return true
}
