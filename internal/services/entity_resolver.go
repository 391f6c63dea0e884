package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/JulioAnalista/vendas-audit/internal/database"
	"github.com/JulioAnalista/vendas-audit/internal/models"
	"github.com/sirupsen/logrus"
)

// ReferenceCache guarda emisores, destinatarios y productos ya resueltos
// dentro de un lote. Se limpia al final de cada lote.
type ReferenceCache struct {
	emitters   map[string]*models.Emitter
	recipients map[string]*models.Recipient
	products   map[string]*models.Product
}

// NewReferenceCache crea un cache vacío
func NewReferenceCache() *ReferenceCache {
	c := &ReferenceCache{}
	c.Clear()
	return c
}

// Clear descarta todas las entradas
func (c *ReferenceCache) Clear() {
	c.emitters = make(map[string]*models.Emitter)
	c.recipients = make(map[string]*models.Recipient)
	c.products = make(map[string]*models.Product)
}

// Len retorna la cantidad de entidades en cache
func (c *ReferenceCache) Len() int {
	return len(c.emitters) + len(c.recipients) + len(c.products)
}

// EntityResolver busca o crea las entidades de referencia de una NFe.
// Una entidad existente nunca se actualiza desde el XML.
type EntityResolver struct {
	emitterRepo   *database.EmitterRepository
	recipientRepo *database.RecipientRepository
	productRepo   *database.ProductRepository
	logger        *logrus.Logger
}

// NewEntityResolver crea una nueva instancia del resolver
func NewEntityResolver(db *database.DB, logger *logrus.Logger) *EntityResolver {
	return &EntityResolver{
		emitterRepo:   database.NewEmitterRepository(db, logger),
		recipientRepo: database.NewRecipientRepository(db, logger),
		productRepo:   database.NewProductRepository(db, logger),
		logger:        logger,
	}
}

// ResolveEmitter obtiene el emisor por CNPJ o lo crea con attrs
func (r *EntityResolver) ResolveEmitter(ctx context.Context, cache *ReferenceCache, cnpj string, attrs models.EmitterAttrs) (*models.Emitter, error) {
	if emitter, ok := cache.emitters[cnpj]; ok {
		return emitter, nil
	}

	emitter, err := findOrCreate(ctx,
		func() (*models.Emitter, error) { return r.emitterRepo.GetByCNPJ(ctx, cnpj) },
		func() (bool, *models.Emitter, error) {
			e := models.NewEmitter(cnpj, attrs)
			created, err := r.emitterRepo.Create(ctx, e)
			return created, e, err
		},
	)
	if err != nil {
		return nil, fmt.Errorf("error resolving emitter %s: %w", cnpj, err)
	}

	cache.emitters[cnpj] = emitter
	return emitter, nil
}

// ResolveRecipient obtiene o crea el destinatario. Sin bloque dest se usa el
// destinatario por defecto; sin CNPJ ni CPF, una clave sintética derivada de
// la chave de acesso.
func (r *EntityResolver) ResolveRecipient(ctx context.Context, cache *ReferenceCache, accessKey string, attrs models.RecipientAttrs, present bool) (*models.Recipient, error) {
	taxID, kind := recipientKey(accessKey, attrs, present)

	if recipient, ok := cache.recipients[taxID]; ok {
		return recipient, nil
	}

	recipient, err := findOrCreate(ctx,
		func() (*models.Recipient, error) { return r.recipientRepo.GetByTaxID(ctx, taxID) },
		func() (bool, *models.Recipient, error) {
			rc := models.NewRecipient(taxID, kind, attrs)
			created, err := r.recipientRepo.Create(ctx, rc)
			return created, rc, err
		},
	)
	if err != nil {
		return nil, fmt.Errorf("error resolving recipient %s: %w", taxID, err)
	}

	if kind == models.TaxIDKindSynthetic {
		r.logger.WithFields(logrus.Fields{
			"access_key": accessKey,
			"tax_id":     taxID,
		}).Debug("Recipient without CNPJ/CPF, using synthetic key")
	}

	cache.recipients[taxID] = recipient
	return recipient, nil
}

func recipientKey(accessKey string, attrs models.RecipientAttrs, present bool) (string, models.TaxIDKind) {
	switch {
	case !present:
		return models.DefaultRecipientTaxID, models.TaxIDKindDefault
	case attrs.CNPJ != "":
		return attrs.CNPJ, models.TaxIDKindCNPJ
	case attrs.CPF != "":
		return attrs.CPF, models.TaxIDKindCPF
	default:
		return models.SyntheticTaxID(accessKey), models.TaxIDKindSynthetic
	}
}

// ResolveProduct obtiene el producto por código o lo crea
func (r *EntityResolver) ResolveProduct(ctx context.Context, cache *ReferenceCache, code string, attrs models.ProductAttrs) (*models.Product, error) {
	if code == "" {
		code = models.PlaceholderProductCode
	}
	if product, ok := cache.products[code]; ok {
		return product, nil
	}

	product, err := findOrCreate(ctx,
		func() (*models.Product, error) { return r.productRepo.GetByCode(ctx, code) },
		func() (bool, *models.Product, error) {
			p := models.NewProduct(code, attrs)
			created, err := r.productRepo.Create(ctx, p)
			return created, p, err
		},
	)
	if err != nil {
		return nil, fmt.Errorf("error resolving product %s: %w", code, err)
	}

	cache.products[code] = product
	return product, nil
}

// findOrCreate busca por clave natural y crea si no existe. Si otro escritor
// gana la carrera del INSERT, se relee la fila que quedó.
func findOrCreate[T any](ctx context.Context, find func() (*T, error), create func() (bool, *T, error)) (*T, error) {
	found, err := find()
	if err == nil {
		return found, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}

	created, entity, err := create()
	if err != nil {
		return nil, err
	}
	if created {
		return entity, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return find()
}
