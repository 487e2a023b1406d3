// Package bar is the canonical demo binding: a plain Go type exposed as a
// remotely callable class, with no knowledge of the adapter inside the type
// itself. It doubles as the fixture for the end-to-end tests.
package bar

import (
	"errors"
	"time"

	"github.com/heisenware/vrpc-go"
	"github.com/heisenware/vrpc-go/registry"
)

// Bottle is one item of the bar's selection.
type Bottle struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	Country  string `json:"country"`
}

// Bar manages a selection of bottles and notifies interested parties about
// additions and removals.
type Bar struct {
	selection []Bottle
	onAdd     func(Bottle)
	onRemove  func(Bottle)
}

// New creates an empty bar.
func New() *Bar {
	return &Bar{}
}

// NewStocked creates a bar with an initial selection.
func NewStocked(selection []Bottle) *Bar {
	return &Bar{selection: selection}
}

// Philosophy states the house philosophy.
func Philosophy() string {
	return "I have mixed drinks about feelings."
}

// AddBottle puts one bottle into the selection.
func (b *Bar) AddBottle(name, category, country string) {
	bottle := Bottle{Name: name, Category: category, Country: country}
	b.selection = append(b.selection, bottle)
	if b.onAdd != nil {
		b.onAdd(bottle)
	}
}

// RemoveBottle takes the named bottle out of the selection.
func (b *Bar) RemoveBottle(name string) error {
	for i, bottle := range b.selection {
		if bottle.Name == name {
			b.selection = append(b.selection[:i], b.selection[i+1:]...)
			if b.onRemove != nil {
				b.onRemove(bottle)
			}
			return nil
		}
	}
	return errors.New("Sorry, this bottle is not in our selection")
}

// GetSelection returns the current selection.
func (b *Bar) GetSelection() []Bottle {
	if b.selection == nil {
		return []Bottle{}
	}
	return b.selection
}

// OnAdd stores a listener fired for every added bottle.
func (b *Bar) OnAdd(listener func(Bottle)) {
	b.onAdd = listener
}

// OnRemove stores a listener fired for every removed bottle.
func (b *Bar) OnRemove(listener func(Bottle)) {
	b.onRemove = listener
}

// PrepareDrink mixes a drink on a background goroutine and reports the
// preparation time through done once finished.
func (b *Bar) PrepareDrink(done func(seconds int)) {
	go func() {
		time.Sleep(10 * time.Millisecond)
		done(3)
	}()
}

// Binding declares the Bar class.
func Binding() *vrpc.Class {
	return vrpc.NewClass("Bar").
		ConstructorX(New, "Creates an empty bar").
		Constructor(NewStocked).
		StaticX("philosophy", Philosophy, "States the house philosophy", "the philosophy").
		MemberX("addBottle", (*Bar).AddBottle, "Adds a bottle to the bar", "",
			vrpc.Param{Name: "name", Default: vrpc.Required, Description: "the name on the label"},
			vrpc.Param{Name: "category", Default: "spirit", Description: "the category of the drink"},
			vrpc.Param{Name: "country", Default: vrpc.Required, Description: "the country of origin"},
		).
		MemberX("removeBottle", (*Bar).RemoveBottle, "Removes a bottle from the bar", "",
			vrpc.Param{Name: "name", Default: vrpc.Required, Description: "the name on the label"},
		).
		Member("getSelection", (*Bar).GetSelection).
		Member("onAdd", (*Bar).OnAdd).
		Member("onRemove", (*Bar).OnRemove).
		Member("prepareDrink", (*Bar).PrepareDrink)
}

// Register applies the binding to the process-wide registry.
func Register() {
	Binding().Register()
}

// RegisterInto applies the binding to r.
func RegisterInto(r *registry.Registry) {
	Binding().RegisterInto(r)
}
