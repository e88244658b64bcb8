package main

import (
	"bytes"
	"io"

	"github.com/rawbytedev/stepwire"
	"gopkg.in/yaml.v3"
)

// Inventory is the document carried by the CLI.
type Inventory struct {
	Name     string            `yaml:"name" cbor:"name"`
	Revision uint64            `yaml:"revision" cbor:"revision"`
	Location [2]float64        `yaml:"location" cbor:"location"`
	Labels   map[string]string `yaml:"labels" cbor:"labels"`
	Items    []Item            `yaml:"items" cbor:"items"`
}

type Item struct {
	SKU      string  `yaml:"sku" cbor:"sku"`
	Quantity uint32  `yaml:"quantity" cbor:"quantity"`
	Price    float64 `yaml:"price" cbor:"price"`
	Origin   *string `yaml:"origin,omitempty" cbor:"origin,omitempty"`
}

var itemCodec = stepwire.Struct(
	stepwire.FieldOf(func(i *Item) *string { return &i.SKU }, stepwire.String()),
	stepwire.FieldOf(func(i *Item) *uint32 { return &i.Quantity }, stepwire.Uint32()),
	stepwire.FieldOf(func(i *Item) *float64 { return &i.Price }, stepwire.Float64()),
	stepwire.FieldOf(func(i *Item) **string { return &i.Origin }, stepwire.Nullable(stepwire.String())),
)

var inventoryCodec = stepwire.Struct(
	stepwire.FieldOf(func(v *Inventory) *string { return &v.Name }, stepwire.String()),
	stepwire.FieldOf(func(v *Inventory) *uint64 { return &v.Revision }, stepwire.Uint64()),
	stepwire.FieldOf(func(v *Inventory) *[2]float64 { return &v.Location }, stepwire.Array[[2]float64](stepwire.Float64())),
	stepwire.FieldOf(func(v *Inventory) *map[string]string { return &v.Labels }, stepwire.Map(stepwire.String(), stepwire.String())),
	stepwire.FieldOf(func(v *Inventory) *[]Item { return &v.Items }, stepwire.Slice(itemCodec)),
)

// readInventories parses every YAML document in r.
func readInventories(r io.Reader) ([]Inventory, error) {
	dec := yaml.NewDecoder(r)
	var docs []Inventory
	for {
		var inv Inventory
		err := dec.Decode(&inv)
		if err == io.EOF {
			return docs, nil
		}
		if err != nil {
			return nil, err
		}
		docs = append(docs, inv)
	}
}

// canonical renders docs as YAML, which treats nil and empty collections
// alike.
func canonical(docs []Inventory) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	for i := range docs {
		if err := enc.Encode(&docs[i]); err != nil {
			return nil, err
		}
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
