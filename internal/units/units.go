// Package units implements the SI exponent-vector algebra used to scale
// and convert decoded meter values between their wire unit and the unit a
// field wants to render in.
package units

import (
	"fmt"
	"math"
)

// Quantity names the physical kind a value represents, independent of the
// unit it happens to be expressed in.
type Quantity int

const (
	QuantityUnknown Quantity = iota
	QuantityDimensionless
	QuantityVolume
	QuantityTime
	QuantityFlow
	QuantityTemperature
	QuantityHCA
	QuantityPointInTime
	QuantityEnergy
	QuantityPower
	QuantityText
)

func (q Quantity) String() string {
	switch q {
	case QuantityDimensionless:
		return "Dimensionless"
	case QuantityVolume:
		return "Volume"
	case QuantityTime:
		return "Time"
	case QuantityFlow:
		return "Flow"
	case QuantityTemperature:
		return "Temperature"
	case QuantityHCA:
		return "HCA"
	case QuantityPointInTime:
		return "PointInTime"
	case QuantityEnergy:
		return "Energy"
	case QuantityPower:
		return "Power"
	case QuantityText:
		return "Text"
	default:
		return "Unknown"
	}
}

// Unit is a concrete named unit, e.g. M3 or KWH. Two units are convertible
// only when their exponent vectors agree.
type Unit int

const (
	UnitUnknown Unit = iota
	UnitNone // dimensionless, used for HCA counters and text
	UnitM3
	UnitSecond
	UnitM3H
	UnitC
	UnitF
	UnitK
	UnitHCA
	UnitDateTimeLT
	UnitMJ
	UnitKWH
	UnitKW
	UnitTXT
)

func (u Unit) String() string {
	switch u {
	case UnitNone:
		return ""
	case UnitM3:
		return "m3"
	case UnitSecond:
		return "s"
	case UnitM3H:
		return "m3h"
	case UnitC:
		return "c"
	case UnitF:
		return "f"
	case UnitK:
		return "k"
	case UnitHCA:
		return "hca"
	case UnitDateTimeLT:
		return ""
	case UnitMJ:
		return "mj"
	case UnitKWH:
		return "kwh"
	case UnitKW:
		return "kw"
	case UnitTXT:
		return ""
	default:
		return "?"
	}
}

// expVector indexes dimensions s,m,kg,A,mol,cd,K plus three synthetic
// "unit-like" axes (month, year, unix timestamp), so that a point-in-time
// value can never be silently summed with a duration.
type expVector [10]int

const (
	dimSecond = iota
	dimMeter
	dimKilogram
	dimAmpere
	dimMole
	dimCandela
	dimKelvin
	dimMonth
	dimYear
	dimUnixTS
)

// siUnit is the internal descriptor backing a Unit: its quantity, its
// exponent vector, and the affine transform (scale, offset) that converts a
// value in this unit to the vector's SI base representation.
type siUnit struct {
	quantity Quantity
	exp      expVector
	scale    float64
	offset   float64
}

var table = map[Unit]siUnit{
	UnitNone:       {quantity: QuantityDimensionless, scale: 1},
	UnitM3:         {quantity: QuantityVolume, exp: vec(dimMeter, 3), scale: 1},
	UnitSecond:     {quantity: QuantityTime, exp: vec(dimSecond, 1), scale: 1},
	UnitM3H:        {quantity: QuantityFlow, exp: combine(vec(dimMeter, 3), negate(vec(dimSecond, 1))), scale: 1.0 / 3600.0},
	UnitC:          {quantity: QuantityTemperature, exp: vec(dimKelvin, 1), scale: 1, offset: 273.15},
	UnitF:          {quantity: QuantityTemperature, exp: vec(dimKelvin, 1), scale: 5.0 / 9.0, offset: 459.67 * 5.0 / 9.0},
	UnitK:          {quantity: QuantityTemperature, exp: vec(dimKelvin, 1), scale: 1, offset: 0},
	UnitHCA:        {quantity: QuantityHCA, scale: 1},
	UnitDateTimeLT: {quantity: QuantityPointInTime, exp: vec(dimUnixTS, 1), scale: 1},
	UnitMJ:         {quantity: QuantityEnergy, exp: combine(vec(dimKilogram, 1), combine(vec(dimMeter, 2), negate(vec(dimSecond, 2)))), scale: 1e6},
	UnitKWH:        {quantity: QuantityEnergy, exp: combine(vec(dimKilogram, 1), combine(vec(dimMeter, 2), negate(vec(dimSecond, 2)))), scale: 3.6e6},
	UnitKW:         {quantity: QuantityPower, exp: combine(vec(dimKilogram, 1), combine(vec(dimMeter, 2), negate(vec(dimSecond, 3)))), scale: 1000},
	UnitTXT:        {quantity: QuantityText, scale: 1},
}

func vec(dim, exp int) expVector {
	var v expVector
	v[dim] = exp
	return v
}

func combine(a, b expVector) expVector {
	var r expVector
	for i := range r {
		r[i] = a[i] + b[i]
	}
	return r
}

func negate(a expVector) expVector {
	var r expVector
	for i := range r {
		r[i] = -a[i]
	}
	return r
}

// Convert converts v, expressed in from, into to. Temperature units (C, F,
// K) carry an affine offset and are converted explicitly; all other units
// convert by a pure scale ratio once their exponent vectors are shown
// equal.
func Convert(v float64, from, to Unit) (float64, error) {
	if from == to {
		return v, nil
	}
	fu, ok := table[from]
	if !ok {
		return 0, fmt.Errorf("units: unknown source unit %v", from)
	}
	tu, ok := table[to]
	if !ok {
		return 0, fmt.Errorf("units: unknown target unit %v", to)
	}
	if fu.exp != tu.exp {
		return 0, fmt.Errorf("units: %v and %v are not compatible", from, to)
	}
	if fu.quantity == QuantityTemperature {
		kelvin := v*fu.scale + fu.offset
		return (kelvin - tu.offset) / tu.scale, nil
	}
	return v * fu.scale / tu.scale, nil
}

// QuantityOf reports the physical quantity a unit belongs to.
func QuantityOf(u Unit) Quantity {
	return table[u].quantity
}

// DefaultUnit returns the unit a quantity renders in when a field does not
// request an explicit override.
func DefaultUnit(q Quantity) Unit {
	switch q {
	case QuantityVolume:
		return UnitM3
	case QuantityTime:
		return UnitSecond
	case QuantityFlow:
		return UnitM3H
	case QuantityTemperature:
		return UnitC
	case QuantityHCA:
		return UnitHCA
	case QuantityPointInTime:
		return UnitDateTimeLT
	case QuantityEnergy:
		return UnitKWH
	case QuantityPower:
		return UnitKW
	case QuantityText:
		return UnitTXT
	default:
		return UnitNone
	}
}

// Dimension is a bare exponent vector plus scale, the result of combining
// two named units via Multiply/Divide. It has no Quantity of its own and
// renders no unit suffix.
type Dimension struct {
	exp   expVector
	scale float64
}

func dimensionOf(u Unit) (Dimension, error) {
	su, ok := table[u]
	if !ok {
		return Dimension{}, fmt.Errorf("units: unknown unit %v", u)
	}
	return Dimension{exp: su.exp, scale: su.scale}, nil
}

// Multiply combines two units' exponent vectors and scales, component-wise.
func Multiply(a, b Unit) (Dimension, error) {
	da, err := dimensionOf(a)
	if err != nil {
		return Dimension{}, err
	}
	db, err := dimensionOf(b)
	if err != nil {
		return Dimension{}, err
	}
	return Dimension{exp: combine(da.exp, db.exp), scale: da.scale * db.scale}, nil
}

// Divide combines two units' exponent vectors and scales, component-wise.
func Divide(a, b Unit) (Dimension, error) {
	da, err := dimensionOf(a)
	if err != nil {
		return Dimension{}, err
	}
	db, err := dimensionOf(b)
	if err != nil {
		return Dimension{}, err
	}
	if db.scale == 0 {
		return Dimension{}, fmt.Errorf("units: division by zero-scale unit %v", b)
	}
	return Dimension{exp: combine(da.exp, negate(db.exp)), scale: da.scale / db.scale}, nil
}

// Sqrt halves a dimension's exponent vector, failing when that would
// produce a fractional exponent (e.g. you cannot take the square root of a
// plain volume).
func Sqrt(d Dimension) (Dimension, error) {
	var r expVector
	for i, e := range d.exp {
		if e%2 != 0 {
			return Dimension{}, fmt.Errorf("units: sqrt has a fractional exponent on axis %d", i)
		}
		r[i] = e / 2
	}
	return Dimension{exp: r, scale: math.Sqrt(d.scale)}, nil
}

// roughlyEqual reports whether a and b agree within a relative tolerance of
// 1e-9, used by tests verifying convert(convert(v, a, b), b, a) == v.
func roughlyEqual(a, b float64) bool {
	if a == b {
		return true
	}
	d := math.Abs(a - b)
	scale := math.Max(math.Abs(a), math.Abs(b))
	if scale == 0 {
		return d < 1e-9
	}
	return d/scale < 1e-9
}

// RoughlyEqual exposes roughlyEqual for use by package tests elsewhere in
// the module that assert round-trip conversion invariants.
func RoughlyEqual(a, b float64) bool {
	return roughlyEqual(a, b)
}
