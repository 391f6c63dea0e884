package nfe

import (
	"math"
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

// LookupStrategy es una forma de resolver un path relativo a un elemento.
// Find retorna nil cuando la estrategia no encuentra el nodo.
type LookupStrategy struct {
	Name string
	Find func(uri string, el *etree.Element, steps []string) *etree.Element
}

// QualifiedLookup recorre el path exigiendo el namespace fiscal en cada paso
var QualifiedLookup = LookupStrategy{
	Name: "qualified",
	Find: func(uri string, el *etree.Element, steps []string) *etree.Element {
		return walk(el, steps, func(child *etree.Element, tag string) bool {
			return child.Tag == tag && child.NamespaceURI() == uri
		})
	},
}

// LocalNameLookup recorre el mismo path ignorando prefijos y namespaces
var LocalNameLookup = LookupStrategy{
	Name: "local-name",
	Find: func(_ string, el *etree.Element, steps []string) *etree.Element {
		return walk(el, steps, matchLocal)
	},
}

// DescendantLookup busca en profundidad (pre-orden, incluyendo el propio
// elemento) el primer nodo con el tag inicial del path desde el cual el resto
// del path resuelve.
var DescendantLookup = LookupStrategy{
	Name: "descendant",
	Find: func(_ string, el *etree.Element, steps []string) *etree.Element {
		if len(steps) == 0 {
			return el
		}
		var found *etree.Element
		preorder(el, func(node *etree.Element) bool {
			if node.Tag != steps[0] {
				return true
			}
			if target := walk(node, steps[1:], matchLocal); target != nil {
				found = target
				return false
			}
			return true
		})
		return found
	},
}

// DefaultStrategies es la cadena de fallback usada para campos del documento
func DefaultStrategies() []LookupStrategy {
	return []LookupStrategy{QualifiedLookup, LocalNameLookup, DescendantLookup}
}

// DirectStrategies no incluye la búsqueda recursiva
func DirectStrategies() []LookupStrategy {
	return []LookupStrategy{QualifiedLookup, LocalNameLookup}
}

// Extractor implementa accesores totales: nunca fallan, retornan el default
type Extractor struct {
	uri        string
	strategies []LookupStrategy
}

// NewExtractor crea un extractor con la cadena de estrategias por defecto
func NewExtractor(ns Namespaces) *Extractor {
	return NewExtractorWithStrategies(ns, DefaultStrategies()...)
}

// NewExtractorWithStrategies crea un extractor con una cadena explícita
func NewExtractorWithStrategies(ns Namespaces, strategies ...LookupStrategy) *Extractor {
	return &Extractor{uri: ns.URI(), strategies: strategies}
}

// Direct retorna un extractor con el mismo namespace sin búsqueda recursiva
func (x *Extractor) Direct() *Extractor {
	return &Extractor{uri: x.uri, strategies: DirectStrategies()}
}

// Find retorna el primer nodo encontrado por la cadena de estrategias
func (x *Extractor) Find(el *etree.Element, path string) *etree.Element {
	if el == nil {
		return nil
	}
	steps := splitPath(path)
	for _, strategy := range x.strategies {
		if node := strategy.Find(x.uri, el, steps); node != nil {
			return node
		}
	}
	return nil
}

// FindAll retorna todos los hermanos que coinciden con el último paso del path,
// usando la primera estrategia que encuentre al menos uno.
func (x *Extractor) FindAll(el *etree.Element, path string) []*etree.Element {
	if el == nil {
		return nil
	}
	steps := splitPath(path)
	if len(steps) == 0 {
		return nil
	}
	last := steps[len(steps)-1]
	for _, strategy := range x.strategies {
		first := strategy.Find(x.uri, el, steps)
		if first == nil || first.Parent() == nil {
			continue
		}
		var nodes []*etree.Element
		for _, sibling := range first.Parent().ChildElements() {
			if sibling.Tag == last && sibling.Space == first.Space {
				nodes = append(nodes, sibling)
			}
		}
		return nodes
	}
	return nil
}

// Text retorna el texto del nodo o def si no existe o está vacío
func (x *Extractor) Text(el *etree.Element, path, def string) string {
	if value, ok := x.LookupText(el, path); ok {
		return value
	}
	return def
}

// LookupText retorna el primer texto no vacío entre las estrategias
func (x *Extractor) LookupText(el *etree.Element, path string) (string, bool) {
	if el == nil {
		return "", false
	}
	steps := splitPath(path)
	for _, strategy := range x.strategies {
		node := strategy.Find(x.uri, el, steps)
		if node == nil {
			continue
		}
		if text := strings.TrimSpace(node.Text()); text != "" {
			return text, true
		}
	}
	return "", false
}

// Number retorna el valor numérico del nodo o def
func (x *Extractor) Number(el *etree.Element, path string, def float64) float64 {
	if value, ok := x.LookupNumber(el, path); ok {
		return value
	}
	return def
}

// LookupNumber parsea el texto del nodo aceptando coma decimal
func (x *Extractor) LookupNumber(el *etree.Element, path string) (float64, bool) {
	text, ok := x.LookupText(el, path)
	if !ok {
		return 0, false
	}
	return ParseDecimal(text)
}

// ParseDecimal acepta "1234.56", "1234,56" y "1.234,56"
func ParseDecimal(text string) (float64, bool) {
	text = strings.TrimSpace(text)
	if strings.Contains(text, ",") {
		if strings.Contains(text, ".") {
			text = strings.ReplaceAll(text, ".", "")
		}
		text = strings.ReplaceAll(text, ",", ".")
	}
	value, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, false
	}
	return value, true
}

// splitPath separa "nfe:ide/nfe:nNF" en ["ide", "nNF"]
func splitPath(path string) []string {
	var steps []string
	for _, part := range strings.Split(path, "/") {
		part = strings.TrimSpace(part)
		if part == "" || part == "." {
			continue
		}
		if i := strings.IndexByte(part, ':'); i >= 0 {
			part = part[i+1:]
		}
		steps = append(steps, part)
	}
	return steps
}

func matchLocal(child *etree.Element, tag string) bool {
	return child.Tag == tag
}

func walk(el *etree.Element, steps []string, match func(*etree.Element, string) bool) *etree.Element {
	current := el
	for _, step := range steps {
		var next *etree.Element
		for _, child := range current.ChildElements() {
			if match(child, step) {
				next = child
				break
			}
		}
		if next == nil {
			return nil
		}
		current = next
	}
	return current
}

// preorder visita el elemento y sus descendientes hasta que visit retorne false
func preorder(el *etree.Element, visit func(*etree.Element) bool) bool {
	if !visit(el) {
		return false
	}
	for _, child := range el.ChildElements() {
		if !preorder(child, visit) {
			return false
		}
	}
	return true
}
