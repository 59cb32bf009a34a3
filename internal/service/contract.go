package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"peerrent-backend/internal/deadline"
	"peerrent-backend/internal/domain"
	"peerrent-backend/internal/logger"
	"peerrent-backend/internal/repository"

	"golang.org/x/crypto/bcrypt"
)

// maxOtpSends caps OTP emails over the lifetime of one contract.
const maxOtpSends = 3

type contractService struct {
	contractRepo repository.ContractRepository
	userRepo     repository.UserRepository
	orderSvc     OrderService
	email        EmailService
	policy       *deadline.Policy
	clock        deadline.Clock
}

func NewContractService(
	contractRepo repository.ContractRepository,
	userRepo repository.UserRepository,
	orderSvc OrderService,
	email EmailService,
	policy *deadline.Policy,
	clock deadline.Clock,
) ContractService {
	return &contractService{
		contractRepo: contractRepo,
		userRepo:     userRepo,
		orderSvc:     orderSvc,
		email:        email,
		policy:       policy,
		clock:        clock,
	}
}

func (s *contractService) RequestOtp(ctx context.Context, actor domain.Actor, contractID string) (time.Time, error) {
	var expiresAt time.Time
	err := withConflictRetry(ctx, func(ctx context.Context) error {
		c, err := s.contractRepo.GetByID(ctx, contractID)
		if err != nil {
			return err
		}
		slot := c.SlotFor(actor.ID)
		if slot == nil {
			return domain.AuthorizationError("not a party to this contract")
		}
		if slot.Signed {
			return domain.AlreadySignedError(actor.ID)
		}
		if c.Status != domain.ContractStatusAwaitingSignatures {
			return domain.InvalidStateError("contract is %s", c.Status)
		}
		if c.OtpSendCount >= maxOtpSends {
			return domain.RateLimitError("OTP send limit reached for this contract")
		}

		code, err := generateOtpCode()
		if err != nil {
			return err
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		expiresAt = s.policy.Expiry(domain.EntityTypeContract, deadline.StepOtpValidity, now)
		ch := &domain.OtpChallenge{
			ContractID: c.ID,
			ActorID:    actor.ID,
			CodeHash:   string(hash),
			ExpiresAt:  expiresAt,
			CreatedAt:  now,
		}
		if err := s.contractRepo.UpsertChallenge(ctx, ch); err != nil {
			return err
		}

		c.OtpSendCount++
		if err := s.contractRepo.Update(ctx, c); err != nil {
			return err
		}

		user, err := s.userRepo.GetByID(ctx, actor.ID)
		if err != nil {
			return err
		}
		if err := s.email.SendOtpCode(ctx, user.Email, user.Name, code, expiresAt); err != nil {
			logger.Error("Failed to send OTP email", "contract_id", c.ID, "error", err)
		}
		return nil
	})
	return expiresAt, err
}

func (s *contractService) VerifyOtp(ctx context.Context, actor domain.Actor, contractID, code string) error {
	c, err := s.contractRepo.GetByID(ctx, contractID)
	if err != nil {
		return err
	}
	if c.SlotFor(actor.ID) == nil {
		return domain.AuthorizationError("not a party to this contract")
	}

	ch, err := s.contractRepo.GetChallenge(ctx, contractID, actor.ID)
	if err != nil {
		return err
	}
	if ch == nil || ch.ConsumedAt != nil {
		return domain.OtpMismatchError("no active OTP challenge, request a new code")
	}
	if s.clock.Now().After(ch.ExpiresAt) {
		return domain.OtpExpiredError("OTP code has expired, request a new code")
	}
	if bcrypt.CompareHashAndPassword([]byte(ch.CodeHash), []byte(code)) != nil {
		return domain.OtpMismatchError("OTP code does not match")
	}

	ch.Verified = true
	return s.contractRepo.UpsertChallenge(ctx, ch)
}

func (s *contractService) Sign(ctx context.Context, actor domain.Actor, contractID, signatureBlob string) (*domain.Contract, error) {
	if signatureBlob == "" {
		return nil, domain.ValidationError("signature payload is required")
	}
	var out *domain.Contract
	err := withConflictRetry(ctx, func(ctx context.Context) error {
		c, err := s.contractRepo.GetByID(ctx, contractID)
		if err != nil {
			return err
		}
		slot := c.SlotFor(actor.ID)
		if slot == nil {
			return domain.AuthorizationError("not a party to this contract")
		}
		if slot.Signed {
			return domain.AlreadySignedError(actor.ID)
		}
		if c.Status != domain.ContractStatusAwaitingSignatures {
			return domain.InvalidStateError("contract is %s", c.Status)
		}

		ch, err := s.contractRepo.GetChallenge(ctx, contractID, actor.ID)
		if err != nil {
			return err
		}
		if ch == nil || !ch.Verified || ch.ConsumedAt != nil {
			return domain.OtpMismatchError("signing requires a verified OTP session")
		}
		if s.clock.Now().After(ch.ExpiresAt) {
			return domain.OtpExpiredError("OTP session has expired, request a new code")
		}

		now := s.clock.Now()
		slot.Signed = true
		slot.Signature = signatureBlob
		slot.SignedAt = &now
		if c.BothPartiesSigned() {
			c.Status = domain.ContractStatusFullyExecuted
		}
		if err := s.contractRepo.Update(ctx, c); err != nil {
			return err
		}

		// A verified challenge authorizes exactly one signature.
		ch.ConsumedAt = &now
		if err := s.contractRepo.UpsertChallenge(ctx, ch); err != nil {
			return err
		}

		if c.Status == domain.ContractStatusFullyExecuted {
			if err := s.orderSvc.AdvanceOnContractComplete(ctx, c.SubOrderID); err != nil {
				return err
			}
		}
		out = c
		return nil
	})
	return out, err
}

func (s *contractService) GetContract(ctx context.Context, actor domain.Actor, contractID string) (*domain.Contract, error) {
	c, err := s.contractRepo.GetByID(ctx, contractID)
	if err != nil {
		return nil, err
	}
	if c.SlotFor(actor.ID) == nil && !actor.IsAdmin() {
		return nil, domain.AuthorizationError("not a party to this contract")
	}
	return c, nil
}

func (s *contractService) GetBySubOrder(ctx context.Context, actor domain.Actor, subOrderID string) (*domain.Contract, error) {
	c, err := s.contractRepo.GetBySubOrder(ctx, subOrderID)
	if err != nil {
		return nil, err
	}
	if c.SlotFor(actor.ID) == nil && !actor.IsAdmin() {
		return nil, domain.AuthorizationError("not a party to this contract")
	}
	return c, nil
}

// generateOtpCode draws a uniform 6-digit code from crypto/rand.
func generateOtpCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
