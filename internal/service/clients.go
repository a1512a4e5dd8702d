package service

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"github.com/punchamoorthee/backoffice/internal/access"
	"github.com/punchamoorthee/backoffice/internal/domain"
	"github.com/punchamoorthee/backoffice/internal/store"
)

type CreateClientRequest struct {
	IdentityID string
	Name       string
	CPF        string
	BirthDate  time.Time
	Phone      string
	Address    string
}

type ClientService struct {
	store store.Store
	log   *logrus.Logger
	now   func() time.Time
}

func NewClientService(st store.Store, log *logrus.Logger, opts ...Option) *ClientService {
	o := buildOptions(opts)
	return &ClientService{store: st, log: log, now: o.now}
}

func (s *ClientService) validate(req CreateClientRequest) error {
	switch {
	case strings.TrimSpace(req.IdentityID) == "":
		return domain.Validation("identity_id", "Identidade é obrigatória.")
	case strings.TrimSpace(req.Name) == "" || utf8.RuneCountInString(req.Name) > 100:
		return domain.Validation("nome", "Nome é obrigatório e deve ter até 100 caracteres.")
	case strings.TrimSpace(req.CPF) == "" || utf8.RuneCountInString(req.CPF) > 14:
		return domain.Validation("cpf", "CPF é obrigatório e deve ter até 14 caracteres.")
	case req.BirthDate.IsZero() || req.BirthDate.After(s.now()):
		return domain.Validation("data_nascimento", "Data de nascimento inválida.")
	}
	return validateContact(req.Phone, req.Address)
}

func validateContact(phone, address string) error {
	if utf8.RuneCountInString(phone) > 15 {
		return domain.Validation("telefone", "Telefone deve ter até 15 caracteres.")
	}
	if utf8.RuneCountInString(address) > 200 {
		return domain.Validation("endereco", "Endereço deve ter até 200 caracteres.")
	}
	return nil
}

// Create registers a client profile for an identity. Staff only.
func (s *ClientService) Create(ctx context.Context, caller domain.Identity, req CreateClientRequest) (*domain.Client, error) {
	if err := access.RequirePrivileged(caller, "Apenas administradores podem cadastrar clientes."); err != nil {
		return nil, err
	}
	if err := s.validate(req); err != nil {
		return nil, err
	}

	c := &domain.Client{
		IdentityID: req.IdentityID,
		Name:       req.Name,
		CPF:        req.CPF,
		BirthDate:  dateOf(req.BirthDate),
		Phone:      req.Phone,
		Address:    req.Address,
	}
	err := s.store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		return tx.InsertClient(ctx, c)
	})
	if err != nil {
		return nil, err
	}

	s.log.WithField("client_id", c.ID).Info("client created")
	return c, nil
}

// UpdateContact changes the phone and/or address. Nil leaves a field unchanged.
func (s *ClientService) UpdateContact(ctx context.Context, caller domain.Identity, id int64, phone, address *string) (*domain.Client, error) {
	var out *domain.Client
	err := s.store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		c, err := tx.GetClient(ctx, access.Unrestricted, id)
		if err != nil {
			return err
		}
		if err := access.Authorize(caller, c.IdentityID); err != nil {
			return err
		}
		if phone != nil {
			c.Phone = *phone
		}
		if address != nil {
			c.Address = *address
		}
		if err := validateContact(c.Phone, c.Address); err != nil {
			return err
		}
		if err := tx.UpdateClientContact(ctx, c.ID, c.Phone, c.Address); err != nil {
			return err
		}
		out, err = tx.GetClient(ctx, access.Unrestricted, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *ClientService) Get(ctx context.Context, caller domain.Identity, id int64) (*domain.Client, error) {
	return s.store.GetClient(ctx, access.For(caller), id)
}

func (s *ClientService) List(ctx context.Context, caller domain.Identity) ([]domain.Client, error) {
	return s.store.ListClients(ctx, access.For(caller))
}
