// Package nfetest arma documentos NFe sintéticos para tests.
package nfetest

import (
	"fmt"
	"html"
	"strings"
)

// Item describe un det del documento generado
type Item struct {
	Number      string
	Code        string
	Name        string
	NCM         string
	CFOP        string
	Unit        string
	Quantity    string
	UnitPrice   string
	Total       string
	ICMS        string
	PIS         string
	OmitProduct bool
}

// Invoice describe el documento generado. Los campos vacíos se omiten.
type Invoice struct {
	AccessKey     string
	OmitNamespace bool
	WrapInProc    bool
	Number        string
	Series        string
	Model         string
	TpNF          string
	IssueDate     string
	EntryDate     string
	EmitterCNPJ   string
	EmitterName   string
	OmitRecipient bool
	RecipientCNPJ string
	RecipientCPF  string
	RecipientName string
	TotalProducts string
	TotalICMS     string
	TotalAmount   string
	Items         []Item
}

// AccessKey genera una chave de acesso de 44 dígitos distinta para cada seq
func AccessKey(seq int) string {
	return fmt.Sprintf("3523051234567800019055001%019d", seq)
}

// NewInvoice retorna un documento válido con dos items
func NewInvoice(seq int) Invoice {
	return Invoice{
		AccessKey:     AccessKey(seq),
		Number:        fmt.Sprintf("%d", 1000+seq),
		Series:        "1",
		Model:         "55",
		TpNF:          "1",
		IssueDate:     "2023-05-10T14:30:00-03:00",
		EmitterCNPJ:   "12345678000190",
		EmitterName:   "Comercial Exemplo Ltda",
		RecipientCNPJ: "98765432000110",
		RecipientName: "Cliente Exemplo SA",
		TotalProducts: "150.00",
		TotalICMS:     "18.00",
		TotalAmount:   "150.00",
		Items: []Item{
			{Number: "1", Code: "P001", Name: "Parafuso", NCM: "73181500", CFOP: "5102", Unit: "UN", Quantity: "10.0000", UnitPrice: "5.0000", Total: "50.00", ICMS: "6.00", PIS: "0.33"},
			{Number: "2", Code: "P002", Name: "Porca", NCM: "73181600", CFOP: "5102", Unit: "UN", Quantity: "20,0000", UnitPrice: "5,0000", Total: "100,00", ICMS: "12.00", PIS: "0.66"},
		},
	}
}

// XML serializa el documento
func (inv Invoice) XML() []byte {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	ns := ` xmlns="http://www.portalfiscal.inf.br/nfe"`
	if inv.OmitNamespace {
		ns = ""
	}
	if inv.WrapInProc {
		fmt.Fprintf(&b, `<nfeProc versao="4.00"%s>`, ns)
		b.WriteString(`<NFe>`)
	} else {
		fmt.Fprintf(&b, `<NFe%s>`, ns)
	}

	if inv.AccessKey != "" {
		fmt.Fprintf(&b, `<infNFe versao="4.00" Id="NFe%s">`, inv.AccessKey)
	} else {
		b.WriteString(`<infNFe versao="4.00">`)
	}

	b.WriteString(`<ide>`)
	tag(&b, "mod", inv.Model)
	tag(&b, "serie", inv.Series)
	tag(&b, "nNF", inv.Number)
	tag(&b, "dhEmi", inv.IssueDate)
	tag(&b, "dhSaiEnt", inv.EntryDate)
	tag(&b, "tpNF", inv.TpNF)
	b.WriteString(`</ide>`)

	b.WriteString(`<emit>`)
	tag(&b, "CNPJ", inv.EmitterCNPJ)
	tag(&b, "xNome", inv.EmitterName)
	b.WriteString(`<enderEmit><xLgr>Rua das Flores</xLgr><nro>100</nro><xBairro>Centro</xBairro><xMun>Sao Paulo</xMun><UF>SP</UF><CEP>01001000</CEP><xPais>BRASIL</xPais><fone>1133334444</fone></enderEmit>`)
	b.WriteString(`<IE>123456789</IE>`)
	b.WriteString(`</emit>`)

	if !inv.OmitRecipient {
		b.WriteString(`<dest>`)
		tag(&b, "CNPJ", inv.RecipientCNPJ)
		tag(&b, "CPF", inv.RecipientCPF)
		tag(&b, "xNome", inv.RecipientName)
		b.WriteString(`<enderDest><xLgr>Av Brasil</xLgr><nro>200</nro><xMun>Campinas</xMun><UF>SP</UF></enderDest>`)
		b.WriteString(`</dest>`)
	}

	for _, item := range inv.Items {
		if item.Number != "" {
			fmt.Fprintf(&b, `<det nItem="%s">`, item.Number)
		} else {
			b.WriteString(`<det>`)
		}
		if !item.OmitProduct {
			b.WriteString(`<prod>`)
			tag(&b, "cProd", item.Code)
			tag(&b, "xProd", item.Name)
			tag(&b, "NCM", item.NCM)
			tag(&b, "CFOP", item.CFOP)
			tag(&b, "uCom", item.Unit)
			tag(&b, "qCom", item.Quantity)
			tag(&b, "vUnCom", item.UnitPrice)
			tag(&b, "vProd", item.Total)
			b.WriteString(`</prod>`)
		}
		b.WriteString(`<imposto>`)
		if item.ICMS != "" {
			fmt.Fprintf(&b, `<ICMS><ICMS00><orig>0</orig><CST>00</CST><vBC>%s</vBC><pICMS>12.00</pICMS><vICMS>%s</vICMS></ICMS00></ICMS>`, item.Total, item.ICMS)
		}
		if item.PIS != "" {
			fmt.Fprintf(&b, `<PIS><PISAliq><CST>01</CST><vPIS>%s</vPIS></PISAliq></PIS>`, item.PIS)
		}
		b.WriteString(`</imposto>`)
		b.WriteString(`</det>`)
	}

	b.WriteString(`<total><ICMSTot>`)
	tag(&b, "vICMS", inv.TotalICMS)
	tag(&b, "vProd", inv.TotalProducts)
	tag(&b, "vNF", inv.TotalAmount)
	b.WriteString(`</ICMSTot></total>`)

	b.WriteString(`</infNFe></NFe>`)
	if inv.WrapInProc {
		fmt.Fprintf(&b, `<protNFe versao="4.00"><infProt><chNFe>%s</chNFe></infProt></protNFe></nfeProc>`, inv.AccessKey)
	}
	return []byte(b.String())
}

func tag(b *strings.Builder, name, value string) {
	if value == "" {
		return
	}
	fmt.Fprintf(b, "<%s>%s</%s>", name, html.EscapeString(value), name)
}
