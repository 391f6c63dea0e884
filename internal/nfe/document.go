package nfe

import (
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/JulioAnalista/vendas-audit/internal/models"
	"github.com/beevik/etree"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/encoding/charmap"
)

// ErrMissingProduct indica un item det sin bloque prod
var ErrMissingProduct = errors.New("line item without prod element")

var accessKeyPattern = regexp.MustCompile(`^\d{44}$`)

// Reader convierte bytes de XML en documentos NFe navegables
type Reader struct {
	logger *logrus.Logger
	dates  *DateParser
}

// NewReader crea un reader con el parser de fechas por defecto
func NewReader(logger *logrus.Logger) *Reader {
	return &Reader{logger: logger, dates: NewDateParser(logger)}
}

// WithDateParser reemplaza el parser de fechas (tests con reloj fijo)
func (r *Reader) WithDateParser(dates *DateParser) *Reader {
	return &Reader{logger: r.logger, dates: dates}
}

// Read parsea el XML. Un XML mal formado o sin elemento raíz es un error
// fatal para el documento.
func (r *Reader) Read(data []byte, fileName string) (*Document, error) {
	doc := etree.NewDocument()
	doc.ReadSettings.CharsetReader = charsetReader
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrInvalidXML, err)
	}
	root := doc.Root()
	if root == nil {
		return nil, fmt.Errorf("%w: document has no root element", models.ErrInvalidXML)
	}

	ns := ResolveNamespace(root, r.logger)
	return &Document{
		Root:       root,
		Namespaces: ns,
		FileName:   fileName,
		XML:        normalizeUTF8(data),
		x:          NewExtractor(ns),
		dates:      r.dates,
		logger:     r.logger,
	}, nil
}

func charsetReader(charset string, input io.Reader) (io.Reader, error) {
	switch strings.ToLower(strings.TrimSpace(charset)) {
	case "", "utf-8", "utf8":
		return input, nil
	case "iso-8859-1", "iso8859-1", "latin1", "latin-1":
		return charmap.ISO8859_1.NewDecoder().Reader(input), nil
	case "windows-1252", "cp1252":
		return charmap.Windows1252.NewDecoder().Reader(input), nil
	default:
		return nil, fmt.Errorf("unsupported charset: %s", charset)
	}
}

// normalizeUTF8 garantiza que el XML guardado sea texto UTF-8 válido
func normalizeUTF8(data []byte) string {
	if utf8.Valid(data) {
		return string(data)
	}
	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if err != nil {
		return strings.ToValidUTF8(string(data), "�")
	}
	return string(decoded)
}

// Document es una NFe parseada junto con sus accesores tolerantes
type Document struct {
	Root       *etree.Element
	Namespaces Namespaces
	FileName   string
	XML        string

	x      *Extractor
	dates  *DateParser
	logger *logrus.Logger
}

// Extractor expone los accesores seguros del documento
func (d *Document) Extractor() *Extractor {
	return d.x
}

// InfNFe retorna el bloque infNFe, o la raíz cuando no existe
func (d *Document) InfNFe() *etree.Element {
	if d.Root.Tag == "infNFe" {
		return d.Root
	}
	if inf := d.x.Find(d.Root, "infNFe"); inf != nil {
		return inf
	}
	return d.Root
}

type accessKeyStrategy func(d *Document) string

var accessKeyStrategies = []accessKeyStrategy{
	func(d *Document) string {
		id := d.InfNFe().SelectAttrValue("Id", "")
		return strings.TrimPrefix(strings.TrimSpace(id), "NFe")
	},
	func(d *Document) string {
		direct := d.x.Direct()
		for _, path := range []string{"chNFe", "protNFe/infProt/chNFe"} {
			if key := direct.Text(d.Root, path, ""); key != "" {
				return key
			}
		}
		return ""
	},
	func(d *Document) string {
		if node := NewExtractorWithStrategies(d.Namespaces, DescendantLookup).Find(d.Root, "chNFe"); node != nil {
			return strings.TrimSpace(node.Text())
		}
		return ""
	},
}

// AccessKey localiza la chave de acesso: atributo Id de infNFe, elemento
// chNFe directo y por último búsqueda recursiva. Retorna "" si no existe.
func (d *Document) AccessKey() string {
	for _, strategy := range accessKeyStrategies {
		if key := strategy(d); key != "" {
			if !accessKeyPattern.MatchString(key) {
				d.logger.WithFields(logrus.Fields{
					"access_key": key,
					"file":       d.FileName,
				}).Warn("Access key is not a 44 digit number")
			}
			return key
		}
	}
	return ""
}

// Identification son los datos del bloque ide
type Identification struct {
	Number        string
	Series        string
	Model         string
	OperationType models.OperationType
	IssueDate     time.Time
	EntryDate     *time.Time
}

// Identification lee ide con placeholders para campos faltantes
func (d *Document) Identification() Identification {
	inf := d.InfNFe()
	ide := d.x.Find(inf, "ide")

	issueRaw := d.x.Text(ide, "dhEmi", "")
	if issueRaw == "" {
		issueRaw = d.x.Text(ide, "dEmi", "")
	}
	entryRaw := d.x.Text(ide, "dhSaiEnt", "")
	if entryRaw == "" {
		entryRaw = d.x.Text(ide, "dSaiEnt", "")
	}

	return Identification{
		Number:        d.x.Text(ide, "nNF", "Novo"),
		Series:        d.x.Text(ide, "serie", "SN"),
		Model:         d.x.Text(ide, "mod", "SN"),
		OperationType: models.OperationTypeFromTpNF(d.x.Text(ide, "tpNF", "")),
		IssueDate:     d.dates.ParseOrNow(issueRaw),
		EntryDate:     d.dates.ParseOptional(entryRaw),
	}
}

// Emitter lee el bloque emit. El CNPJ vacío indica que el emisor no puede identificarse.
func (d *Document) Emitter() (string, models.EmitterAttrs) {
	emit := d.x.Direct().Find(d.InfNFe(), "emit")
	if emit == nil {
		return "", models.EmitterAttrs{}
	}
	direct := d.x.Direct()
	return onlyDigits(direct.Text(emit, "CNPJ", "")), models.EmitterAttrs{
		Name:              direct.Text(emit, "xNome", ""),
		TradeName:         direct.Text(emit, "xFant", ""),
		StateRegistration: direct.Text(emit, "IE", ""),
		Phone:             direct.Text(emit, "enderEmit/fone", ""),
		Email:             direct.Text(emit, "email", ""),
		Address:           d.address(d.x.Find(emit, "enderEmit")),
	}
}

// Recipient lee el bloque dest; found es false cuando el documento no lo trae
func (d *Document) Recipient() (models.RecipientAttrs, bool) {
	dest := d.x.Direct().Find(d.InfNFe(), "dest")
	if dest == nil {
		return models.RecipientAttrs{}, false
	}
	direct := d.x.Direct()
	return models.RecipientAttrs{
		CNPJ:              onlyDigits(direct.Text(dest, "CNPJ", "")),
		CPF:               onlyDigits(direct.Text(dest, "CPF", "")),
		Name:              direct.Text(dest, "xNome", ""),
		StateRegistration: direct.Text(dest, "IE", ""),
		Phone:             direct.Text(dest, "enderDest/fone", ""),
		Email:             direct.Text(dest, "email", ""),
		Address:           d.address(d.x.Find(dest, "enderDest")),
	}, true
}

func (d *Document) address(ender *etree.Element) models.Address {
	if ender == nil {
		return models.Address{Country: models.DefaultCountry}
	}
	direct := d.x.Direct()
	return models.Address{
		Street:     direct.Text(ender, "xLgr", ""),
		Number:     direct.Text(ender, "nro", ""),
		Complement: direct.Text(ender, "xCpl", ""),
		District:   direct.Text(ender, "xBairro", ""),
		City:       direct.Text(ender, "xMun", ""),
		State:      direct.Text(ender, "UF", ""),
		ZipCode:    direct.Text(ender, "CEP", ""),
		Country:    direct.Text(ender, "xPais", models.DefaultCountry),
	}
}

// Totals lee total/ICMSTot; cada valor faltante queda en 0
func (d *Document) Totals() models.InvoiceTotals {
	tot := d.x.Find(d.InfNFe(), "total/ICMSTot")
	if tot == nil {
		return models.InvoiceTotals{}
	}
	direct := d.x.Direct()
	return models.InvoiceTotals{
		Products:  direct.Number(tot, "vProd", 0),
		Freight:   direct.Number(tot, "vFrete", 0),
		Insurance: direct.Number(tot, "vSeg", 0),
		Discount:  direct.Number(tot, "vDesc", 0),
		Other:     direct.Number(tot, "vOutro", 0),
		ICMS:      direct.Number(tot, "vICMS", 0),
		IPI:       direct.Number(tot, "vIPI", 0),
		PIS:       direct.Number(tot, "vPIS", 0),
		COFINS:    direct.Number(tot, "vCOFINS", 0),
		Total:     direct.Number(tot, "vNF", 0),
	}
}

// Items retorna los nodos det en orden de documento
func (d *Document) Items() []*etree.Element {
	return d.x.FindAll(d.InfNFe(), "det")
}

// Item son los datos de un det listos para resolver producto y persistir
type Item struct {
	Number      int
	ProductCode string
	Product     models.ProductAttrs
	Quantity    float64
	UnitPrice   float64
	TotalPrice  float64
	Discount    float64
	ICMS        float64
	IPI         float64
	PIS         float64
	COFINS      float64
}

// ReadItem lee un det. position es 1-based y se usa si falta nItem.
func (d *Document) ReadItem(det *etree.Element, position int) (Item, error) {
	direct := d.x.Direct()
	prod := direct.Find(det, "prod")
	if prod == nil {
		return Item{}, ErrMissingProduct
	}

	number := position
	if raw := strings.TrimSpace(det.SelectAttrValue("nItem", "")); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			number = n
		}
	}

	name := direct.Text(prod, "xProd", "Produto")
	item := Item{
		Number:      number,
		ProductCode: direct.Text(prod, "cProd", models.PlaceholderProductCode),
		Product: models.ProductAttrs{
			Name:        name,
			Description: direct.Text(det, "infAdProd", name),
			NCM:         direct.Text(prod, "NCM", ""),
			CFOP:        direct.Text(prod, "CFOP", ""),
			Unit:        direct.Text(prod, "uCom", ""),
		},
		Quantity:   direct.Number(prod, "qCom", 1.0),
		UnitPrice:  direct.Number(prod, "vUnCom", 0),
		TotalPrice: direct.Number(prod, "vProd", 0),
		Discount:   direct.Number(prod, "vDesc", 0),
	}

	imposto := direct.Find(det, "imposto")
	item.ICMS = d.taxValue(imposto, "ICMS", "vICMS")
	item.IPI = d.taxValue(imposto, "IPI", "vIPI")
	item.PIS = d.taxValue(imposto, "PIS", "vPIS")
	item.COFINS = d.taxValue(imposto, "COFINS", "vCOFINS")
	return item, nil
}

// taxValue retorna el primer valor del grupo (ICMS00, ICMS10, PISAliq...) o 0
func (d *Document) taxValue(imposto *etree.Element, group, field string) float64 {
	block := d.x.Direct().Find(imposto, group)
	if block == nil {
		return 0
	}
	return d.x.Number(block, field, 0)
}

func onlyDigits(value string) string {
	var b strings.Builder
	for _, r := range value {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
