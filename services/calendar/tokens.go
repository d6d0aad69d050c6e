package calendar

import (
	"context"
	"fmt"
	"sync"
	"time"

	accountRepo "schedly/database/repository/account"
	"schedly/models"
	"schedly/utils"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// refreshSkew is how close to expiry a stored access token may get before
// a refresh is forced.
const refreshSkew = 60 * time.Second

// TokenManager hands out decrypted access tokens for connected accounts.
// Refresh is a critical section per account: two concurrent requests cannot
// both refresh and invalidate each other's tokens. A refresh failure flips
// the account to invalid.
type TokenManager struct {
	Accounts accountRepo.Repository
	Vault    utils.Encrypter
	OAuth    *oauth2.Config
	Logger   *zap.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewTokenManager wires a token manager.
func NewTokenManager(accounts accountRepo.Repository, vault utils.Encrypter, oauthCfg *oauth2.Config, logger *zap.Logger) *TokenManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TokenManager{
		Accounts: accounts,
		Vault:    vault,
		OAuth:    oauthCfg,
		Logger:   logger,
		locks:    make(map[string]*sync.Mutex),
	}
}

func (tm *TokenManager) accountLock(accountID string) *sync.Mutex {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	l, ok := tm.locks[accountID]
	if !ok {
		l = &sync.Mutex{}
		tm.locks[accountID] = l
	}
	return l
}

// AccessToken returns a usable access token for the account, refreshing it
// first when it is within the expiry skew. The refreshed token is persisted
// before it is handed out.
func (tm *TokenManager) AccessToken(ctx context.Context, account *models.ConnectedAccount) (string, error) {
	lock := tm.accountLock(account.ID)
	lock.Lock()
	defer lock.Unlock()

	// Re-read inside the critical section: a concurrent caller may have
	// refreshed while we waited for the lock.
	fresh, err := tm.Accounts.GetAccount(ctx, account.ID)
	if err != nil {
		return "", fmt.Errorf("error reloading account %s: %w", account.ID, err)
	}
	if !fresh.Valid {
		return "", fmt.Errorf("account %s is invalid", account.ID)
	}

	access, err := tm.Vault.Decrypt(fresh.AccessTokenEnc)
	if err != nil {
		return "", fmt.Errorf("error decrypting access token for account %s: %w", account.ID, err)
	}
	if time.Until(fresh.TokenExpiry) > refreshSkew {
		return string(access), nil
	}

	return tm.refresh(ctx, fresh)
}

func (tm *TokenManager) refresh(ctx context.Context, account *models.ConnectedAccount) (string, error) {
	refreshTok, err := tm.Vault.Decrypt(account.RefreshTokenEnc)
	if err != nil {
		return "", fmt.Errorf("error decrypting refresh token for account %s: %w", account.ID, err)
	}

	src := tm.OAuth.TokenSource(ctx, &oauth2.Token{RefreshToken: string(refreshTok)})
	tok, err := src.Token()
	if err != nil {
		// Refresh failure invalidates the account; it is excluded from
		// availability until the host re-consents.
		tm.Logger.Warn("token refresh failed, marking account invalid",
			zap.String("accountId", account.ID), zap.Error(err))
		if markErr := tm.Accounts.MarkInvalid(ctx, account.ID); markErr != nil {
			tm.Logger.Error("failed to mark account invalid",
				zap.String("accountId", account.ID), zap.Error(markErr))
		}
		return "", utils.WrapAppError(utils.CodeUpstream, "calendar account token refresh failed", err)
	}

	accessEnc, err := tm.Vault.Encrypt([]byte(tok.AccessToken))
	if err != nil {
		return "", fmt.Errorf("error encrypting access token: %w", err)
	}
	var refreshEnc []byte
	if tok.RefreshToken != "" && tok.RefreshToken != string(refreshTok) {
		if refreshEnc, err = tm.Vault.Encrypt([]byte(tok.RefreshToken)); err != nil {
			return "", fmt.Errorf("error encrypting refresh token: %w", err)
		}
	}

	// Persist before anything uses the new token.
	if err := tm.Accounts.SaveTokens(ctx, account.ID, accessEnc, refreshEnc, tok.Expiry); err != nil {
		return "", fmt.Errorf("error persisting refreshed tokens for account %s: %w", account.ID, err)
	}
	return tok.AccessToken, nil
}
