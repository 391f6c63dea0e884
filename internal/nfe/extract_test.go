package nfe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const extractFixture = `<NFe xmlns="http://www.portalfiscal.inf.br/nfe">
	<infNFe Id="NFe123">
		<ide><nNF>42</nNF><serie> </serie></ide>
		<total><ICMSTot><vNF>1.234,56</vNF><vFrete>10,5</vFrete><vSeg>abc</vSeg></ICMSTot></total>
		<wrapper><deep><ide><cUF>35</cUF></ide></deep></wrapper>
		<other xmlns="urn:other"><nNF>99</nNF></other>
	</infNFe>
</NFe>`

func fixtureExtractor(t *testing.T) (*Extractor, *Document) {
	t.Helper()
	root := parseRoot(t, extractFixture)
	ns := Namespaces{Alias: DefaultNamespace}
	return NewExtractor(ns), &Document{Root: root, Namespaces: ns, x: NewExtractor(ns)}
}

func TestExtractorText(t *testing.T) {
	x, doc := fixtureExtractor(t)
	inf := doc.InfNFe()
	require.Equal(t, "infNFe", inf.Tag)

	tests := []struct {
		name     string
		path     string
		expected string
	}{
		{"qualified path", "ide/nNF", "42"},
		{"prefixed path", "nfe:ide/nfe:nNF", "42"},
		{"blank text yields default", "ide/serie", "default"},
		{"missing node yields default", "ide/dhEmi", "default"},
		{"nested inconsistently found recursively", "ide/cUF", "35"},
		{"foreign namespace only reached by local-name", "other/nNF", "99"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, x.Text(inf, tt.path, "default"))
		})
	}
}

func TestExtractorNumber(t *testing.T) {
	x, doc := fixtureExtractor(t)
	inf := doc.InfNFe()

	assert.InDelta(t, 1234.56, x.Number(inf, "total/ICMSTot/vNF", 0), 0.0001)
	assert.InDelta(t, 10.5, x.Number(inf, "total/ICMSTot/vFrete", 0), 0.0001)
	assert.Equal(t, 7.0, x.Number(inf, "total/ICMSTot/vSeg", 7))
	assert.Equal(t, 0.0, x.Number(inf, "total/ICMSTot/vIPI", 0))
	assert.Equal(t, 3.0, x.Number(nil, "anything", 3))
}

func TestLookupStrategiesInIsolation(t *testing.T) {
	root := parseRoot(t, extractFixture)
	steps := splitPath("ide/cUF")

	assert.Nil(t, QualifiedLookup.Find(DefaultNamespace, root, steps))
	assert.Nil(t, LocalNameLookup.Find(DefaultNamespace, root, steps))

	found := DescendantLookup.Find(DefaultNamespace, root, steps)
	require.NotNil(t, found)
	assert.Equal(t, "35", found.Text())

	direct := NewExtractorWithStrategies(Namespaces{Alias: DefaultNamespace}, DirectStrategies()...)
	assert.Equal(t, "none", direct.Text(root, "ide/cUF", "none"))
}

func TestDescendantLookupIsPreorder(t *testing.T) {
	root := parseRoot(t, `<a><b><c>first</c></b><c>second</c></a>`)
	found := DescendantLookup.Find("", root, []string{"c"})
	require.NotNil(t, found)
	assert.Equal(t, "first", found.Text())
}

func TestFindAll(t *testing.T) {
	root := parseRoot(t, `<NFe xmlns="http://www.portalfiscal.inf.br/nfe"><infNFe><det nItem="1"/><ide/><det nItem="2"/><det nItem="3"/></infNFe></NFe>`)
	x := NewExtractor(Namespaces{Alias: DefaultNamespace})

	dets := x.FindAll(root, "infNFe/det")
	require.Len(t, dets, 3)
	assert.Equal(t, "3", dets[2].SelectAttrValue("nItem", ""))
	assert.Empty(t, x.FindAll(root, "infNFe/missing"))
}

func TestParseDecimal(t *testing.T) {
	tests := []struct {
		in       string
		expected float64
		ok       bool
	}{
		{"10.50", 10.5, true},
		{"10,50", 10.5, true},
		{"1.234,56", 1234.56, true},
		{" 3 ", 3, true},
		{"", 0, false},
		{"R$ 10", 0, false},
		{"NaN", 0, false},
		{"Inf", 0, false},
		{"-Infinity", 0, false},
		{"+inf", 0, false},
		{"1e400", 0, false},
	}
	for _, tt := range tests {
		value, ok := ParseDecimal(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.InDelta(t, tt.expected, value, 0.0001, tt.in)
	}
}
