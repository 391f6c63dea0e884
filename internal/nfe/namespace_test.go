package nfe

import (
	"testing"

	"github.com/beevik/etree"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseRoot(t *testing.T, xml string) *etree.Element {
	t.Helper()
	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromString(xml))
	require.NotNil(t, doc.Root())
	return doc.Root()
}

func TestResolveNamespace(t *testing.T) {
	tests := []struct {
		name     string
		xml      string
		expected string
		warns    bool
	}{
		{
			name:     "default namespace declared on root",
			xml:      `<NFe xmlns="http://www.portalfiscal.inf.br/nfe"><infNFe/></NFe>`,
			expected: "http://www.portalfiscal.inf.br/nfe",
		},
		{
			name:     "prefixed declaration",
			xml:      `<n:NFe xmlns:n="http://www.portalfiscal.inf.br/nfe"><n:infNFe/></n:NFe>`,
			expected: "http://www.portalfiscal.inf.br/nfe",
		},
		{
			name:     "declaration on first child only",
			xml:      `<lote><NFe xmlns="http://example.com/fiscal"><infNFe/></NFe></lote>`,
			expected: "http://example.com/fiscal",
		},
		{
			name:     "unrelated root declaration is skipped in favor of qualified tags",
			xml:      `<root xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance" xmlns="urn:other"><a/></root>`,
			expected: "urn:other",
		},
		{
			name:     "no namespace at all",
			xml:      `<NFe><infNFe/></NFe>`,
			expected: DefaultNamespace,
			warns:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, hook := test.NewNullLogger()
			ns := ResolveNamespace(parseRoot(t, tt.xml), logger)

			assert.Equal(t, tt.expected, ns.URI())
			if tt.warns {
				require.NotNil(t, hook.LastEntry())
				assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
			} else {
				assert.Empty(t, hook.AllEntries())
			}
		})
	}
}

func TestResolveNamespaceNilRoot(t *testing.T) {
	logger, _ := test.NewNullLogger()
	assert.Equal(t, DefaultNamespace, ResolveNamespace(nil, logger).URI())
}
