package handlers

import (
	"net/http"
	"time"

	accountRepo "schedly/database/repository/account"
	"schedly/models"
	"schedly/services/calendar"
	"schedly/utils"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

const (
	oauthStatePrefix = "oauthstate:"
	oauthStateTTL    = 10 * time.Minute
)

// OAuthHandler runs the calendar account connect flow. State nonces live in
// Redis so the callback can run on any instance.
type OAuthHandler struct {
	Accounts   accountRepo.Repository
	OAuth      *oauth2.Config
	Vault      utils.Encrypter
	Client     *calendar.Client
	Reconciler *calendar.Reconciler
	State      *redis.Client
	Logger     *zap.Logger
}

// Connect starts the OAuth consent flow for the authenticated host.
//
// GET /api/host/calendar/connect
func (h *OAuthHandler) Connect(c *gin.Context) {
	hostID := c.GetString("hostID")

	state := uuid.NewString()
	key := oauthStatePrefix + state
	if err := h.State.Set(c.Request.Context(), key, hostID, oauthStateTTL).Err(); err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "could not start connect flow", err.Error())
		return
	}

	url := h.OAuth.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
	c.JSON(http.StatusOK, gin.H{"url": url})
}

// Callback finishes the consent flow: the code is exchanged, tokens are
// sealed and the account's calendar list is reconciled.
//
// GET /api/oauth/callback?state=...&code=...
func (h *OAuthHandler) Callback(c *gin.Context) {
	state := c.Query("state")
	code := c.Query("code")
	if state == "" || code == "" {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", "state and code are required")
		return
	}

	ctx := c.Request.Context()
	key := oauthStatePrefix + state
	hostID, err := h.State.Get(ctx, key).Result()
	if err != nil || hostID == "" {
		utils.JSONError(c, http.StatusBadRequest, "invalid or expired state", state)
		return
	}
	// One-shot nonce.
	_ = h.State.Del(ctx, key).Err()

	tok, err := h.OAuth.Exchange(ctx, code)
	if err != nil {
		utils.JSONError(c, http.StatusBadGateway, "token exchange failed", err.Error())
		return
	}

	accountID := uuid.NewString()
	info, err := h.Client.UserInfo(ctx, accountID, tok.AccessToken)
	if err != nil {
		utils.JSONError(c, http.StatusBadGateway, "could not resolve account identity", err.Error())
		return
	}

	accessEnc, err := h.Vault.Encrypt([]byte(tok.AccessToken))
	if err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "could not store tokens", err.Error())
		return
	}
	refreshEnc, err := h.Vault.Encrypt([]byte(tok.RefreshToken))
	if err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "could not store tokens", err.Error())
		return
	}

	account := &models.ConnectedAccount{
		ID:               accountID,
		HostID:           hostID,
		Provider:         "google",
		ExternalIdentity: info.Email,
		AccessTokenEnc:   accessEnc,
		RefreshTokenEnc:  refreshEnc,
		TokenExpiry:      tok.Expiry,
		Valid:            true,
		CreatedAt:        time.Now().UTC(),
	}
	if err := h.Accounts.UpsertAccount(ctx, account); err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "could not store account", err.Error())
		return
	}

	cals, err := h.Reconciler.Sync(ctx, account)
	if err != nil {
		// The account is connected; calendars can be reconciled later.
		h.Logger.Warn("calendar reconcile failed after connect",
			zap.String("accountId", account.ID), zap.Error(err))
	}

	c.JSON(http.StatusOK, gin.H{
		"accountId": account.ID,
		"identity":  account.ExternalIdentity,
		"calendars": cals,
	})
}
