// Package aci implements a client for the JSON/REST management API of an
// APIC-style network-fabric controller.
//
// The controller manages a tree of Managed Objects (MOs), each addressable
// by a hierarchical Distinguished Name (DN). Connection provides CRUD and
// query operations against a single controller endpoint; MultiConnection
// fails over transparently between the redundant endpoints of a cluster,
// refreshing or re-establishing the authentication session as needed.
package aci

// ACITimestampFormat is the time layout of timestamps returned by the
// controller API. The library does not parse timestamp attributes; they
// are exposed as opaque strings.
const ACITimestampFormat = "2006-01-02T15:04:05.000-07:00"

const (
	dnKey = "dn"
	rnKey = "rn"
)

// Object is a Managed Object (MO) in the controller's object tree: an
// instance of a class with a set of string attributes and zero or more
// children. Children are owned exclusively by their parent; there are no
// cross-references between objects.
//
// Two attribute keys are distinguished: "dn" holds the object's globally
// unique Distinguished Name and "rn" its Relative Name, unique among
// siblings. Neither is required on construction; decoding reconstructs
// both whenever they are derivable.
type Object struct {
	ClassName  string
	Attributes map[string]string
	Children   []*Object
}

// NewObject creates an Object with the given class name, attributes and
// children. The attribute map is used as-is, not copied.
func NewObject(className string, attributes map[string]string, children ...*Object) *Object {
	if attributes == nil {
		attributes = make(map[string]string)
	}
	return &Object{
		ClassName:  className,
		Attributes: attributes,
		Children:   children,
	}
}

// DN returns the Distinguished Name of the object, or "" if it is unset.
func (o *Object) DN() string {
	return o.Attributes[dnKey]
}

// SetDN sets the Distinguished Name of the object.
func (o *Object) SetDN(dn string) {
	o.setAttribute(dnKey, dn)
}

// RN returns the Relative Name of the object, or "" if it is unset.
func (o *Object) RN() string {
	return o.Attributes[rnKey]
}

// SetRN sets the Relative Name of the object.
func (o *Object) SetRN(rn string) {
	o.setAttribute(rnKey, rn)
}

func (o *Object) setAttribute(key, value string) {
	if o.Attributes == nil {
		o.Attributes = make(map[string]string)
	}
	o.Attributes[key] = value
}

// Clone returns a deep copy of the object and its subtree.
func (o *Object) Clone() *Object {
	if o == nil {
		return nil
	}
	dup := &Object{ClassName: o.ClassName}
	if o.Attributes != nil {
		dup.Attributes = make(map[string]string, len(o.Attributes))
		for k, v := range o.Attributes {
			dup.Attributes[k] = v
		}
	}
	if o.Children != nil {
		dup.Children = make([]*Object, len(o.Children))
		for i, child := range o.Children {
			dup.Children[i] = child.Clone()
		}
	}
	return dup
}
