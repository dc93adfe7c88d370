package aci

import (
	"encoding/json"

	jsoniter "github.com/json-iterator/go"
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// objectBody is the wire form of a managed object's value: the entry
// under the class name key.
type objectBody struct {
	Attributes map[string]string `json:"attributes"`
	Children   []*Object         `json:"children,omitempty"`
}

// MarshalJSON converts the object into its wire representation: a JSON
// object with a single entry whose key is the class name and whose value
// holds the attributes object and, when the object has children, the
// children array.
func (o *Object) MarshalJSON() ([]byte, error) {
	attribs := o.Attributes
	if attribs == nil {
		attribs = map[string]string{}
	}
	return jsonAPI.Marshal(map[string]objectBody{
		o.ClassName: {Attributes: attribs, Children: o.Children},
	})
}

// UnmarshalJSON decodes the wire representation of a managed object
// without any parent context. See DecodeObject.
func (o *Object) UnmarshalJSON(data []byte) error {
	decoded, err := DecodeObject(data, "")
	if err != nil {
		return err
	}
	*o = *decoded
	return nil
}

// DecodeObject decodes the wire representation of a managed object.
//
// parentDN is used to construct the Distinguished Name (DN) from the
// Relative Name (RN) if the DN is missing; pass "" when there is no
// parent. If the DN is present, parentDN is ignored. Conversely, a
// missing RN is reconstructed as the last RDN of the DN. Children are
// decoded recursively with the object's own DN as their parent. The
// decoder never invents names it cannot derive: an object that carries
// neither is returned as-is.
func DecodeObject(data []byte, parentDN string) (*Object, error) {
	var entries map[string]json.RawMessage
	if err := jsonAPI.Unmarshal(data, &entries); err != nil {
		var v any
		if jerr := jsonAPI.Unmarshal(data, &v); jerr != nil {
			return nil, markWrap(ErrInvalidJSON, jerr)
		}
		return nil, ErrNotAnObject
	}
	if entries == nil {
		// JSON null
		return nil, ErrNotAnObject
	}
	if len(entries) != 1 {
		return nil, ErrMultipleEntries
	}

	var className string
	var rawBody json.RawMessage
	for k, v := range entries {
		className, rawBody = k, v
	}

	var body objectWireBody
	if err := jsonAPI.Unmarshal(rawBody, &body); err != nil {
		var v any
		if jerr := jsonAPI.Unmarshal(rawBody, &v); jerr == nil {
			if _, ok := v.(map[string]any); !ok {
				return nil, ErrMissingAttributes
			}
		}
		return nil, markWrap(ErrInvalidJSON, err)
	}
	if body.Attributes == nil {
		return nil, ErrMissingAttributes
	}

	attribs := make(map[string]string, len(body.Attributes)+2)
	for k, v := range body.Attributes {
		attribs[k] = v
	}

	if _, ok := attribs[dnKey]; !ok && parentDN != "" {
		if rn, ok := attribs[rnKey]; ok {
			attribs[dnKey] = parentDN + "/" + rn
		}
	}
	if _, ok := attribs[rnKey]; !ok {
		if dn, ok := attribs[dnKey]; ok {
			// silently skipped on split failure; rn stays absent
			if rdns, err := SplitDN(dn); err == nil && len(rdns) > 0 {
				attribs[rnKey] = rdns[len(rdns)-1]
			}
		}
	}

	dn := attribs[dnKey]
	var children []*Object
	for _, rawChild := range body.Children {
		child, err := DecodeObject(rawChild, dn)
		if err != nil {
			return nil, err
		}
		children = append(children, child)
	}

	return &Object{
		ClassName:  className,
		Attributes: attribs,
		Children:   children,
	}, nil
}

// objectWireBody mirrors objectBody with the children left raw so that
// each child can be decoded with its parent's reconstructed DN.
type objectWireBody struct {
	Attributes map[string]string `json:"attributes"`
	Children   []json.RawMessage `json:"children"`
}

// DecodeList decodes the controller's response envelope, a JSON object
// with an "imdata" entry containing a list of managed objects.
func DecodeList(data []byte) ([]*Object, error) {
	var envelope struct {
		Imdata *[]json.RawMessage `json:"imdata"`
	}
	if err := jsonAPI.Unmarshal(data, &envelope); err != nil {
		return nil, markWrap(ErrInvalidJSON, err)
	}
	if envelope.Imdata == nil {
		return nil, ErrNoImdata
	}

	objs := make([]*Object, 0, len(*envelope.Imdata))
	for _, raw := range *envelope.Imdata {
		obj, err := DecodeObject(raw, "")
		if err != nil {
			return nil, err
		}
		objs = append(objs, obj)
	}
	return objs, nil
}
