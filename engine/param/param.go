// Package param implements the typed parameter system that carries values
// across node boundaries. A value has two forms:
//
//   - wire form: what flows between nodes and into persisted execution
//     records. Binary payloads are object store References.
//   - engine form: what a node's Execute receives. Binary payloads are
//     materialized bytes plus a mime type.
//
// Both forms share the Value tagged variant; ToWire and FromWire are the only
// operations allowed to move a value between them. Everything else in the
// engine treats values as opaque.
package param

import (
	"context"
	"errors"
	"fmt"

	"flowline.dev/flowline/engine/object"
)

// Kind names a parameter type. The set is closed; nodes cannot introduce new
// kinds at runtime.
type Kind string

const (
	// KindString is a UTF-8 string scalar.
	KindString Kind = "string"
	// KindNumber is a float64 scalar.
	KindNumber Kind = "number"
	// KindBoolean is a boolean scalar.
	KindBoolean Kind = "boolean"
	// KindJSON is a tree of JSON scalars, objects and arrays.
	KindJSON Kind = "json"
	// KindGeoJSON is a JSON document constrained to GeoJSON geometry.
	KindGeoJSON Kind = "geojson"
	// KindImage is a binary image payload.
	KindImage Kind = "image"
	// KindDocument is a binary document payload (PDF and friends).
	KindDocument Kind = "document"
	// KindAudio is a binary audio payload.
	KindAudio Kind = "audio"
	// KindBinary is an untyped binary payload.
	KindBinary Kind = "binary"
	// KindAny matches every other kind. Inputs declared any accept whatever
	// the producing node emitted; outputs declared any carry their runtime kind.
	KindAny Kind = "any"
)

// ErrTypeMismatch indicates a value did not satisfy the declared parameter
// type during conversion. For node outputs this is a node error, never an
// engine error.
var ErrTypeMismatch = errors.New("parameter type mismatch")

// kinds is the closed set of valid kinds.
var kinds = map[Kind]struct{}{
	KindString: {}, KindNumber: {}, KindBoolean: {}, KindJSON: {},
	KindGeoJSON: {}, KindImage: {}, KindDocument: {}, KindAudio: {},
	KindBinary: {}, KindAny: {},
}

// Valid reports whether k is a member of the closed kind set.
func (k Kind) Valid() bool {
	_, ok := kinds[k]
	return ok
}

// Binary reports whether values of kind k carry binary payloads and therefore
// travel as object References on the wire.
func (k Kind) Binary() bool {
	switch k {
	case KindImage, KindDocument, KindAudio, KindBinary:
		return true
	}
	return false
}

// Compatible reports whether an output of kind from may feed an input of kind
// to. The relation is reflexive; any accepts and feeds everything (an
// any-valued wire value feeding a binary input must already be a Reference,
// which FromWire enforces); json accepts every non-binary kind; binary
// subtypes are mutually incompatible; there is no implicit numeric narrowing.
func Compatible(from, to Kind) bool {
	if from == to {
		return true
	}
	if from == KindAny || to == KindAny {
		return true
	}
	if to == KindJSON {
		return !from.Binary()
	}
	return false
}

type (
	// Value is the tagged variant carried on edges and handed to nodes. Exactly
	// one payload field is meaningful, selected by Kind:
	//
	//	string           Text
	//	number           Number
	//	boolean          Bool
	//	json/geojson/any Doc
	//	binary kinds     Ref (wire) and/or Data+Mime (engine)
	//
	// A binary value may carry both Ref and Data after FromWire materialized
	// it; ToWire then writes nothing new and passes the reference through.
	Value struct {
		Kind   Kind    `json:"kind"`
		Text   string  `json:"text,omitempty"`
		Number float64 `json:"number,omitempty"`
		Bool   bool    `json:"bool,omitempty"`
		// Doc serializes without omitempty: falsy documents (false, 0, "")
		// must survive persisted snapshots.
		Doc any               `json:"doc"`
		Ref *object.Reference `json:"ref,omitempty"`

		// Data and Mime are the engine form of a binary payload. They never
		// serialize: persisted records and monitoring snapshots only ever see
		// references.
		Data []byte `json:"-"`
		Mime string `json:"-"`
	}
)

// String builds a string value.
func String(s string) Value { return Value{Kind: KindString, Text: s} }

// Number builds a number value.
func Number(f float64) Value { return Value{Kind: KindNumber, Number: f} }

// Bool builds a boolean value.
func Bool(b bool) Value { return Value{Kind: KindBoolean, Bool: b} }

// JSON builds a json value from a decoded document.
func JSON(doc any) Value { return Value{Kind: KindJSON, Doc: doc} }

// Bytes builds an engine-form binary value.
func Bytes(kind Kind, data []byte, mime string) Value {
	return Value{Kind: kind, Data: data, Mime: mime}
}

// Ref builds a wire-form binary value from an existing reference.
func Ref(kind Kind, ref object.Reference) Value {
	return Value{Kind: kind, Ref: &ref}
}

// Zero reports whether v carries no payload at all.
func (v Value) Zero() bool {
	return v.Kind == ""
}

// ToWire converts an engine-form value produced by a node into its wire form,
// checked against the declared parameter kind. Binary bytes are written to the
// store under the given ownership; binary values that already carry a
// reference pass through without duplication. A malformed binary value
// (neither bytes nor a reference) fails with ErrTypeMismatch, which callers
// treat as a node error. Scalar and JSON values are identity-converted after a
// runtime type check.
func ToWire(ctx context.Context, declared Kind, v Value, store object.Store, owner object.Ownership) (Value, error) {
	kind := effectiveKind(declared, v)
	if !kind.Binary() {
		if !Compatible(v.Kind, declared) {
			return Value{}, mismatch(declared, v.Kind)
		}
		return v, nil
	}
	if v.Ref != nil {
		return Value{Kind: kind, Ref: v.Ref}, nil
	}
	if v.Data == nil {
		return Value{}, mismatch(declared, v.Kind)
	}
	ref, err := store.WriteObject(ctx, v.Data, v.Mime, owner)
	if err != nil {
		return Value{}, err
	}
	return Value{Kind: kind, Ref: &ref}, nil
}

// FromWire converts a wire-form value into the engine form handed to a node,
// checked against the declared parameter kind. Binary references are
// materialized by reading the store; the returned value keeps the reference so
// pass-through nodes can forward it without a rewrite. A wire value that does
// not type-check fails with ErrTypeMismatch.
func FromWire(ctx context.Context, declared Kind, v Value, store object.Store) (Value, error) {
	kind := effectiveKind(declared, v)
	if !kind.Binary() {
		if !Compatible(v.Kind, declared) {
			return Value{}, mismatch(declared, v.Kind)
		}
		return v, nil
	}
	if v.Ref == nil {
		return Value{}, mismatch(declared, v.Kind)
	}
	obj, err := store.ReadObject(ctx, *v.Ref)
	if err != nil {
		return Value{}, err
	}
	return Value{Kind: kind, Ref: v.Ref, Data: obj.Data, Mime: v.Ref.MimeType}, nil
}

// effectiveKind resolves the kind conversions operate under: the declared kind
// wins unless it is any, in which case the value's runtime kind decides.
func effectiveKind(declared Kind, v Value) Kind {
	if declared != KindAny {
		return declared
	}
	return v.Kind
}

func mismatch(declared, got Kind) error {
	return fmt.Errorf("%w: declared %s, got %s", ErrTypeMismatch, declared, got)
}
