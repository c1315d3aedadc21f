//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

// Package fabric implements the asynchronous dataflow core of a
// two-party malicious-secure MPC runtime: the dependency-graph
// executor, the result-handle future abstraction, the network
// sender/receiver loop, and the SPDZ-authenticated scalar and point
// algebra built on top of them.
package fabric

import (
	"encoding/binary"
	"fmt"

	"github.com/markkurossi/starkspdz/curve"
	"github.com/markkurossi/starkspdz/field"
)

var bo = binary.BigEndian

// Kind identifies the variant held by a Value.
type Kind byte

// Value variants, mirroring spec.md's ResultValue tagged union.
const (
	KindBytes Kind = iota
	KindScalar
	KindScalarBatch
	KindPoint
	KindPointBatch
)

func (k Kind) String() string {
	switch k {
	case KindBytes:
		return "Bytes"
	case KindScalar:
		return "Scalar"
	case KindScalarBatch:
		return "ScalarBatch"
	case KindPoint:
		return "Point"
	case KindPointBatch:
		return "PointBatch"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// Value is the tagged union carried by every ResultId: a byte
// sequence, a field element, an ordered sequence of field elements,
// a curve point, or an ordered sequence of curve points. Coercion
// accessors panic with a ProgrammerError on a variant mismatch; per
// spec.md §3 this is a programmer-error contract, not a recoverable
// one.
type Value struct {
	kind    Kind
	bytes   []byte
	scalar  field.Element
	scalars []field.Element
	point   curve.Point
	points  []curve.Point
}

// BytesValue wraps a byte sequence.
func BytesValue(b []byte) Value {
	return Value{kind: KindBytes, bytes: b}
}

// ScalarValue wraps a single field element.
func ScalarValue(s field.Element) Value {
	return Value{kind: KindScalar, scalar: s}
}

// ScalarBatchValue wraps an ordered sequence of field elements.
func ScalarBatchValue(s []field.Element) Value {
	return Value{kind: KindScalarBatch, scalars: s}
}

// PointValue wraps a single curve point.
func PointValue(p curve.Point) Value {
	return Value{kind: KindPoint, point: p}
}

// PointBatchValue wraps an ordered sequence of curve points.
func PointBatchValue(p []curve.Point) Value {
	return Value{kind: KindPointBatch, points: p}
}

// Kind returns v's variant tag.
func (v Value) Kind() Kind {
	return v.kind
}

func (v Value) mismatch(want Kind) {
	panic(&ProgrammerError{
		Op:  "Value coercion",
		Msg: fmt.Sprintf("expected %v, got %v", want, v.kind),
	})
}

// Scalar returns v's field element, panicking if v is not a Scalar.
func (v Value) Scalar() field.Element {
	if v.kind != KindScalar {
		v.mismatch(KindScalar)
	}
	return v.scalar
}

// ScalarBatch returns v's field elements, panicking if v is not a
// ScalarBatch.
func (v Value) ScalarBatch() []field.Element {
	if v.kind != KindScalarBatch {
		v.mismatch(KindScalarBatch)
	}
	return v.scalars
}

// Point returns v's curve point, panicking if v is not a Point.
func (v Value) Point() curve.Point {
	if v.kind != KindPoint {
		v.mismatch(KindPoint)
	}
	return v.point
}

// PointBatch returns v's curve points, panicking if v is not a
// PointBatch.
func (v Value) PointBatch() []curve.Point {
	if v.kind != KindPointBatch {
		v.mismatch(KindPointBatch)
	}
	return v.points
}

// Bytes returns v's raw bytes, panicking if v is not Bytes.
func (v Value) Bytes() []byte {
	if v.kind != KindBytes {
		v.mismatch(KindBytes)
	}
	return v.bytes
}

// Encode serializes v for network transmission: a one-byte kind tag
// followed by the variant's payload. Scalars and points use their
// fixed-width encodings; batches are length-prefixed sequences of
// those.
func (v Value) Encode() []byte {
	switch v.kind {
	case KindBytes:
		out := make([]byte, 1+len(v.bytes))
		out[0] = byte(KindBytes)
		copy(out[1:], v.bytes)
		return out

	case KindScalar:
		out := make([]byte, 1+field.ByteLen)
		out[0] = byte(KindScalar)
		copy(out[1:], v.scalar.Bytes())
		return out

	case KindScalarBatch:
		out := make([]byte, 1+4+len(v.scalars)*field.ByteLen)
		out[0] = byte(KindScalarBatch)
		bo.PutUint32(out[1:5], uint32(len(v.scalars)))
		off := 5
		for _, s := range v.scalars {
			copy(out[off:], s.Bytes())
			off += field.ByteLen
		}
		return out

	case KindPoint:
		out := make([]byte, 1+pointByteLen)
		out[0] = byte(KindPoint)
		copy(out[1:], encodePoint(v.point))
		return out

	case KindPointBatch:
		out := make([]byte, 1+4+len(v.points)*pointByteLen)
		out[0] = byte(KindPointBatch)
		bo.PutUint32(out[1:5], uint32(len(v.points)))
		off := 5
		for _, p := range v.points {
			copy(out[off:], encodePoint(p))
			off += pointByteLen
		}
		return out

	default:
		panic(&ProgrammerError{Op: "Value.Encode", Msg: "unknown kind"})
	}
}

// pointByteLen is the wire size of an encoded curve point: a
// presence flag followed by the two coordinates.
const pointByteLen = 1 + 2*field.ByteLen

func encodePoint(p curve.Point) []byte {
	out := make([]byte, pointByteLen)
	if p.IsIdentity() {
		return out
	}
	out[0] = 1
	x, y := p.XY()
	copy(out[1:1+field.ByteLen], x.Bytes())
	copy(out[1+field.ByteLen:], y.Bytes())
	return out
}

func decodePoint(b []byte) (curve.Point, error) {
	if len(b) != pointByteLen {
		return curve.Point{}, &NetworkError{Msg: "truncated point"}
	}
	if b[0] == 0 {
		return curve.Identity(), nil
	}
	x, err := field.SetBytes(b[1 : 1+field.ByteLen])
	if err != nil {
		return curve.Point{}, &NetworkError{Msg: "invalid point x: " + err.Error()}
	}
	y, err := field.SetBytes(b[1+field.ByteLen:])
	if err != nil {
		return curve.Point{}, &NetworkError{Msg: "invalid point y: " + err.Error()}
	}
	return curve.NewAffine(x, y), nil
}

// DecodeValue parses the wire format produced by Encode.
func DecodeValue(b []byte) (Value, error) {
	if len(b) < 1 {
		return Value{}, &NetworkError{Msg: "empty payload"}
	}
	kind := Kind(b[0])
	body := b[1:]

	switch kind {
	case KindBytes:
		return BytesValue(append([]byte(nil), body...)), nil

	case KindScalar:
		s, err := field.SetBytes(body)
		if err != nil {
			return Value{}, &NetworkError{Msg: err.Error()}
		}
		return ScalarValue(s), nil

	case KindScalarBatch:
		if len(body) < 4 {
			return Value{}, &NetworkError{Msg: "truncated scalar batch"}
		}
		n := int(bo.Uint32(body[0:4]))
		body = body[4:]
		if len(body) != n*field.ByteLen {
			return Value{}, &NetworkError{Msg: "truncated scalar batch body"}
		}
		out := make([]field.Element, n)
		for i := 0; i < n; i++ {
			s, err := field.SetBytes(body[i*field.ByteLen : (i+1)*field.ByteLen])
			if err != nil {
				return Value{}, &NetworkError{Msg: err.Error()}
			}
			out[i] = s
		}
		return ScalarBatchValue(out), nil

	case KindPoint:
		p, err := decodePoint(body)
		if err != nil {
			return Value{}, err
		}
		return PointValue(p), nil

	case KindPointBatch:
		if len(body) < 4 {
			return Value{}, &NetworkError{Msg: "truncated point batch"}
		}
		n := int(bo.Uint32(body[0:4]))
		body = body[4:]
		if len(body) != n*pointByteLen {
			return Value{}, &NetworkError{Msg: "truncated point batch body"}
		}
		out := make([]curve.Point, n)
		for i := 0; i < n; i++ {
			p, err := decodePoint(body[i*pointByteLen : (i+1)*pointByteLen])
			if err != nil {
				return Value{}, err
			}
			out[i] = p
		}
		return PointBatchValue(out), nil

	default:
		return Value{}, &NetworkError{Msg: fmt.Sprintf("unknown value kind %d", kind)}
	}
}

// ResultId is a dense, monotonically assigned identifier for a
// single result slot in the fabric's result buffer.
type ResultId uint64

// Well-known result ids, pre-populated at fabric construction
// (spec.md §3 invariant I6).
const (
	ResultZero     ResultId = 0
	ResultOne      ResultId = 1
	ResultIdentity ResultId = 2

	firstFreeResultID ResultId = 3
)

// OperationId is a dense, monotonically assigned identifier,
// distinct from ResultId.
type OperationId uint64

// OpResult pairs a ResultId with the Value it was fulfilled with.
type OpResult struct {
	ID    ResultId
	Value Value
}
