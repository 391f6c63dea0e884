package nfe

import (
	"regexp"
	"strings"

	"github.com/beevik/etree"
	"github.com/sirupsen/logrus"
)

const (
	// Alias es el prefijo fijo con el que se referencia el namespace fiscal
	Alias = "nfe"
	// DefaultNamespace es el namespace canónico de la NFe
	DefaultNamespace = "http://www.portalfiscal.inf.br/nfe"
)

// Namespaces mapea el alias fijo al URI detectado en el documento
type Namespaces map[string]string

// URI retorna el namespace fiscal resuelto
func (n Namespaces) URI() string {
	return n[Alias]
}

var clarkPrefix = regexp.MustCompile(`^\{([^}]+)\}`)

type namespaceStrategy func(root *etree.Element) (string, bool)

// Orden de detección: declaraciones xmlns en la raíz, luego tags calificados
// de la raíz y sus hijos directos.
var namespaceStrategies = []namespaceStrategy{
	declaredNamespace,
	qualifiedTagNamespace,
}

// ResolveNamespace detecta el namespace fiscal del documento. Nunca falla:
// sin namespace detectable retorna DefaultNamespace y registra un warning.
func ResolveNamespace(root *etree.Element, logger *logrus.Logger) Namespaces {
	if root != nil {
		for _, strategy := range namespaceStrategies {
			if uri, ok := strategy(root); ok {
				return Namespaces{Alias: uri}
			}
		}
	}

	logger.WithField("namespace", DefaultNamespace).Warn("NFe namespace not detected, falling back to default")
	return Namespaces{Alias: DefaultNamespace}
}

func declaredNamespace(root *etree.Element) (string, bool) {
	for _, attr := range root.Attr {
		isDecl := attr.Space == "xmlns" || (attr.Space == "" && attr.Key == "xmlns")
		if isDecl && isFiscalNamespace(attr.Value) {
			return attr.Value, true
		}
	}
	return "", false
}

func isFiscalNamespace(uri string) bool {
	lower := strings.ToLower(uri)
	return strings.Contains(lower, "portalfiscal") || strings.Contains(lower, "nfe")
}

func qualifiedTagNamespace(root *etree.Element) (string, bool) {
	candidates := append([]*etree.Element{root}, root.ChildElements()...)
	for _, el := range candidates {
		if m := clarkPrefix.FindStringSubmatch(clarkName(el)); m != nil {
			return m[1], true
		}
	}
	return "", false
}

// clarkName retorna el tag en notación {uri}local
func clarkName(el *etree.Element) string {
	if uri := el.NamespaceURI(); uri != "" {
		return "{" + uri + "}" + el.Tag
	}
	return el.Tag
}
