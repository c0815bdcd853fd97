package api

import (
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/BOCK-CHAIN/BallotChain/config"
	"github.com/BOCK-CHAIN/BallotChain/core"
	"github.com/BOCK-CHAIN/BallotChain/crypto"
	"github.com/BOCK-CHAIN/BallotChain/gov"
	"github.com/BOCK-CHAIN/BallotChain/types"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// Server exposes the governance instruction surface over HTTP plus a
// websocket event stream for indexers.
type Server struct {
	cfg       config.Config
	logger    *logrus.Logger
	processor *gov.Processor
	state     *gov.GovernanceState
	native    *core.Ledger
	tokens    *core.TokenState
	eventBus  *EventBus
	upgrader  websocket.Upgrader
	metrics   *Metrics
}

// EventBus fans engine events out to websocket subscribers.
type EventBus struct {
	clients    map[*websocket.Conn]bool
	broadcast  chan []byte
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
}

func newEventBus() *EventBus {
	return &EventBus{
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan []byte, 64),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
	}
}

func (eb *EventBus) run() {
	for {
		select {
		case conn := <-eb.register:
			eb.clients[conn] = true
		case conn := <-eb.unregister:
			if _, ok := eb.clients[conn]; ok {
				delete(eb.clients, conn)
				conn.Close()
			}
		case message := <-eb.broadcast:
			for conn := range eb.clients {
				if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
					delete(eb.clients, conn)
					conn.Close()
				}
			}
		}
	}
}

// wireEvent is the JSON envelope pushed to subscribers.
type wireEvent struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp int64       `json:"timestamp"`
}

// Emit implements gov.Emitter: engine events are serialized and broadcast
// without blocking the instruction path.
func (s *Server) Emit(event gov.Event) {
	payload, err := json.Marshal(wireEvent{
		Type:      event.Type,
		Data:      event.Data,
		Timestamp: time.Now().Unix(),
	})
	if err != nil {
		s.logger.WithError(err).Warn("failed to serialize event")
		return
	}

	select {
	case s.eventBus.broadcast <- payload:
	default:
		s.logger.Warn("event bus full, dropping event")
	}
}

func NewServer(cfg config.Config, processor *gov.Processor, state *gov.GovernanceState, native *core.Ledger, tokens *core.TokenState) *Server {
	logger := logrus.New()
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	}

	server := &Server{
		cfg:       cfg,
		logger:    logger,
		processor: processor,
		state:     state,
		native:    native,
		tokens:    tokens,
		eventBus:  newEventBus(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins for development.
			},
		},
		metrics: NewMetrics(),
	}

	processor.SetEmitter(server)
	go server.eventBus.run()

	return server
}

// Start runs the HTTP server until it fails.
func (s *Server) Start() error {
	return s.router().Start(s.cfg.ListenAddr)
}

func (s *Server) router() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(s.requestLogger)

	// Instruction surface.
	e.POST("/gov/dao", s.handleInitializeDAO)
	e.POST("/gov/dao/migrate", s.handleMigrateFromRealms)
	e.POST("/gov/proposal", s.handleCreateProposal)
	e.POST("/gov/proposal/cancel", s.handleCancelProposal)
	e.POST("/gov/proposal/veto", s.handleVetoProposal)
	e.POST("/gov/commit", s.handleCommitVote)
	e.POST("/gov/delegate", s.handleDelegateVote)
	e.POST("/gov/commit-delegated", s.handleCommitDelegatedVote)
	e.POST("/gov/reveal", s.handleRevealVote)
	e.POST("/gov/finalize", s.handleFinalizeProposal)
	e.POST("/gov/execute", s.handleExecuteProposal)
	e.POST("/gov/treasury/deposit", s.handleDepositTreasury)
	e.POST("/gov/voter-weight", s.handleUpdateVoterWeight)

	// Read surface.
	e.GET("/gov/dao/:address", s.handleGetDAO)
	e.GET("/gov/proposal/:dao/:id", s.handleGetProposal)
	e.GET("/gov/proposal/:dao/:id/record/:voter", s.handleGetVoterRecord)
	e.GET("/gov/treasury/:dao", s.handleGetTreasury)
	e.GET("/gov/token/:mint/balance/:owner", s.handleGetTokenBalance)

	// Event stream for indexers.
	e.GET("/gov/events", s.handleWebSocket)

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	if s.cfg.EnableMetrics {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(s.metrics.registry, promhttp.HandlerOpts{})))
	}

	return e
}

func (s *Server) requestLogger(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)

		s.logger.WithFields(logrus.Fields{
			"method":   c.Request().Method,
			"path":     c.Request().URL.Path,
			"status":   c.Response().Status,
			"duration": time.Since(start).String(),
		}).Info("request")

		return err
	}
}

// errorResponse is the stable error envelope: clients match on code.
type errorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (s *Server) fail(c echo.Context, err error) error {
	status := http.StatusInternalServerError

	if govErr, ok := err.(*gov.GovError); ok {
		switch {
		case govErr.Code >= 6001 && govErr.Code <= 6006:
			status = http.StatusConflict
		case govErr.Code >= 6020 && govErr.Code <= 6025:
			status = http.StatusConflict
		case govErr.Code >= 6030 && govErr.Code <= 6031:
			status = http.StatusForbidden
		case govErr.Code == 6060:
			status = http.StatusNotFound
		default:
			status = http.StatusBadRequest
		}

		resp := errorResponse{}
		resp.Error.Code = int(govErr.Code)
		resp.Error.Message = govErr.Message
		return c.JSON(status, resp)
	}

	resp := errorResponse{}
	resp.Error.Message = err.Error()
	return c.JSON(status, resp)
}

// Request parsing helpers.

func parsePubKey(s string) (crypto.PublicKey, error) {
	if s == "" {
		return nil, nil
	}
	return crypto.PublicKeyFromString(s)
}

func parseVotingMode(kind string, capital, community uint8) (gov.VotingMode, error) {
	switch kind {
	case "token_weighted":
		return gov.VotingMode{Kind: gov.ModeTokenWeighted}, nil
	case "quadratic":
		return gov.VotingMode{Kind: gov.ModeQuadratic}, nil
	case "dual_chamber":
		return gov.VotingMode{
			Kind:               gov.ModeDualChamber,
			CapitalThreshold:   capital,
			CommunityThreshold: community,
		}, nil
	default:
		return gov.VotingMode{}, gov.NewGovError(gov.ErrCodeInvalidConfig, "unknown voting mode: "+kind, nil)
	}
}

func parseActionKind(kind string) (gov.TreasuryActionKind, error) {
	switch kind {
	case "send_sol":
		return gov.ActionSendSol, nil
	case "send_token":
		return gov.ActionSendToken, nil
	case "custom_cpi":
		return gov.ActionCustomCPI, nil
	default:
		return 0, gov.NewGovError(gov.ErrCodeInvalidTreasuryAction, "unknown treasury action kind: "+kind, nil)
	}
}

type votingModeRequest struct {
	Kind               string `json:"kind"`
	CapitalThreshold   uint8  `json:"capital_threshold"`
	CommunityThreshold uint8  `json:"community_threshold"`
}

type treasuryActionRequest struct {
	Kind           string `json:"kind"`
	AmountLamports uint64 `json:"amount_lamports"`
	Recipient      string `json:"recipient"`
	TokenMint      string `json:"token_mint"`
}

type initializeDAORequest struct {
	Signer              string            `json:"signer"`
	Name                string            `json:"name"`
	GovernanceTokenMint string            `json:"governance_token_mint"`
	QuorumPercentage    uint8             `json:"quorum_percentage"`
	MinTokensToVote     uint64            `json:"min_tokens_to_vote"`
	RevealWindowSecs    int64             `json:"reveal_window_secs"`
	ExecutionDelaySecs  int64             `json:"execution_delay_secs"`
	VotingMode          votingModeRequest `json:"voting_mode"`
	SourceGovernance    string            `json:"source_governance"`
}

func (s *Server) handleInitializeDAO(c echo.Context) error {
	return s.initializeDAO(c, false)
}

func (s *Server) handleMigrateFromRealms(c echo.Context) error {
	return s.initializeDAO(c, true)
}

func (s *Server) initializeDAO(c echo.Context, migrate bool) error {
	var req initializeDAORequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	signer, err := parsePubKey(req.Signer)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid signer key"})
	}

	mode, err := parseVotingMode(req.VotingMode.Kind, req.VotingMode.CapitalThreshold, req.VotingMode.CommunityThreshold)
	if err != nil {
		return s.fail(c, err)
	}

	tx := gov.InitializeDAOTx{
		Name:                req.Name,
		GovernanceTokenMint: req.GovernanceTokenMint,
		QuorumPercentage:    req.QuorumPercentage,
		MinTokensToVote:     req.MinTokensToVote,
		RevealWindowSecs:    req.RevealWindowSecs,
		ExecutionDelaySecs:  req.ExecutionDelaySecs,
		VotingMode:          mode,
	}

	var dao *gov.DAOAccount
	if migrate {
		source, herr := types.HashFromString(req.SourceGovernance)
		if herr != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid source governance id"})
		}
		dao, err = s.processor.ProcessMigrateFromRealms(&gov.MigrateFromRealmsTx{
			InitializeDAOTx:  tx,
			SourceGovernance: source,
		}, signer)
		s.metrics.observe("migrate_from_realms", err)
	} else {
		dao, err = s.processor.ProcessInitializeDAO(&tx, signer)
		s.metrics.observe("initialize_dao", err)
	}
	if err != nil {
		return s.fail(c, err)
	}

	return c.JSON(http.StatusCreated, daoResponse(dao))
}

type createProposalRequest struct {
	Signer         string                 `json:"signer"`
	DAO            string                 `json:"dao"`
	Title          string                 `json:"title"`
	Description    string                 `json:"description"`
	DurationSecs   int64                  `json:"duration_secs"`
	TreasuryAction *treasuryActionRequest `json:"treasury_action"`
	MetadataHash   string                 `json:"metadata_hash"`
}

func (s *Server) handleCreateProposal(c echo.Context) error {
	var req createProposalRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	signer, err := parsePubKey(req.Signer)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid signer key"})
	}

	dao, err := types.HashFromString(req.DAO)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid dao address"})
	}

	tx := gov.CreateProposalTx{
		DAO:          dao,
		Title:        req.Title,
		Description:  req.Description,
		DurationSecs: req.DurationSecs,
	}

	if req.TreasuryAction != nil {
		kind, kerr := parseActionKind(req.TreasuryAction.Kind)
		if kerr != nil {
			return s.fail(c, kerr)
		}
		recipient, rerr := parsePubKey(req.TreasuryAction.Recipient)
		if rerr != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid recipient key"})
		}
		tx.TreasuryAction = &gov.TreasuryAction{
			Kind:           kind,
			AmountLamports: req.TreasuryAction.AmountLamports,
			Recipient:      recipient,
			TokenMint:      req.TreasuryAction.TokenMint,
		}
	}

	if req.MetadataHash != "" {
		metadata, merr := types.HashFromString(req.MetadataHash)
		if merr != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid metadata hash"})
		}
		tx.MetadataHash = metadata
	}

	proposal, err := s.processor.ProcessCreateProposal(&tx, signer)
	s.metrics.observe("create_proposal", err)
	if err != nil {
		return s.fail(c, err)
	}

	return c.JSON(http.StatusCreated, proposalResponse(proposal))
}

type proposalRefRequest struct {
	Signer     string `json:"signer"`
	DAO        string `json:"dao"`
	ProposalID uint64 `json:"proposal_id"`
}

func (s *Server) proposalRef(c echo.Context) (*proposalRefRequest, crypto.PublicKey, types.Hash, error) {
	var req proposalRefRequest
	if err := c.Bind(&req); err != nil {
		return nil, nil, types.Hash{}, err
	}

	signer, err := parsePubKey(req.Signer)
	if err != nil {
		return nil, nil, types.Hash{}, err
	}

	dao, err := types.HashFromString(req.DAO)
	if err != nil {
		return nil, nil, types.Hash{}, err
	}

	return &req, signer, dao, nil
}

func (s *Server) handleCancelProposal(c echo.Context) error {
	req, signer, dao, err := s.proposalRef(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}

	err = s.processor.ProcessCancelProposal(&gov.CancelProposalTx{DAO: dao, ProposalID: req.ProposalID}, signer)
	s.metrics.observe("cancel_proposal", err)
	if err != nil {
		return s.fail(c, err)
	}

	return c.JSON(http.StatusOK, map[string]string{"status": "cancelled"})
}

func (s *Server) handleVetoProposal(c echo.Context) error {
	req, signer, dao, err := s.proposalRef(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}

	err = s.processor.ProcessVetoProposal(&gov.VetoProposalTx{DAO: dao, ProposalID: req.ProposalID}, signer)
	s.metrics.observe("veto_proposal", err)
	if err != nil {
		return s.fail(c, err)
	}

	return c.JSON(http.StatusOK, map[string]string{"status": "vetoed"})
}

type commitVoteRequest struct {
	Signer          string `json:"signer"`
	DAO             string `json:"dao"`
	ProposalID      uint64 `json:"proposal_id"`
	Commitment      string `json:"commitment"`
	RevealAuthority string `json:"reveal_authority"`
	Delegator       string `json:"delegator"`
}

func (s *Server) handleCommitVote(c echo.Context) error {
	return s.commitVote(c, false)
}

func (s *Server) handleCommitDelegatedVote(c echo.Context) error {
	return s.commitVote(c, true)
}

func (s *Server) commitVote(c echo.Context, delegated bool) error {
	var req commitVoteRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	signer, err := parsePubKey(req.Signer)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid signer key"})
	}

	dao, err := types.HashFromString(req.DAO)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid dao address"})
	}

	commitment, err := types.HashFromString(req.Commitment)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "commitment must be 32 bytes of hex"})
	}

	authority, err := parsePubKey(req.RevealAuthority)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid reveal authority key"})
	}

	var record *gov.VoterRecord
	if delegated {
		delegator, derr := parsePubKey(req.Delegator)
		if derr != nil || delegator == nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid delegator key"})
		}
		record, err = s.processor.ProcessCommitDelegatedVote(&gov.CommitDelegatedVoteTx{
			DAO:             dao,
			ProposalID:      req.ProposalID,
			Commitment:      commitment,
			RevealAuthority: authority,
			Delegator:       delegator,
		}, signer)
		s.metrics.observe("commit_delegated_vote", err)
	} else {
		record, err = s.processor.ProcessCommitVote(&gov.CommitVoteTx{
			DAO:             dao,
			ProposalID:      req.ProposalID,
			Commitment:      commitment,
			RevealAuthority: authority,
		}, signer)
		s.metrics.observe("commit_vote", err)
	}
	if err != nil {
		return s.fail(c, err)
	}

	return c.JSON(http.StatusCreated, voterRecordResponse(record))
}

type delegateVoteRequest struct {
	Signer     string `json:"signer"`
	DAO        string `json:"dao"`
	ProposalID uint64 `json:"proposal_id"`
	Delegatee  string `json:"delegatee"`
}

func (s *Server) handleDelegateVote(c echo.Context) error {
	var req delegateVoteRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	signer, err := parsePubKey(req.Signer)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid signer key"})
	}

	dao, err := types.HashFromString(req.DAO)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid dao address"})
	}

	delegatee, err := parsePubKey(req.Delegatee)
	if err != nil || delegatee == nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid delegatee key"})
	}

	delegation, err := s.processor.ProcessDelegateVote(&gov.DelegateVoteTx{
		DAO:        dao,
		ProposalID: req.ProposalID,
		Delegatee:  delegatee,
	}, signer)
	s.metrics.observe("delegate_vote", err)
	if err != nil {
		return s.fail(c, err)
	}

	return c.JSON(http.StatusCreated, map[string]interface{}{
		"delegator":           delegation.Delegator.String(),
		"delegatee":           delegation.Delegatee.String(),
		"delegated_capital":   delegation.DelegatedCapital,
		"delegated_community": delegation.DelegatedCommunity,
	})
}

type revealVoteRequest struct {
	Signer     string `json:"signer"`
	DAO        string `json:"dao"`
	ProposalID uint64 `json:"proposal_id"`
	Voter      string `json:"voter"`
	Vote       string `json:"vote"`
	Salt       string `json:"salt"`
}

func (s *Server) handleRevealVote(c echo.Context) error {
	var req revealVoteRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	signer, err := parsePubKey(req.Signer)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid signer key"})
	}

	voter, err := parsePubKey(req.Voter)
	if err != nil || voter == nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid voter key"})
	}

	dao, err := types.HashFromString(req.DAO)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid dao address"})
	}

	var vote gov.Vote
	switch req.Vote {
	case "yes":
		vote = gov.VoteYes
	case "no":
		vote = gov.VoteNo
	default:
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "vote must be yes or no"})
	}

	saltBytes, err := hex.DecodeString(req.Salt)
	if err != nil || len(saltBytes) != gov.SaltLen {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "salt must be 32 bytes of hex"})
	}
	var salt [gov.SaltLen]byte
	copy(salt[:], saltBytes)

	err = s.processor.ProcessRevealVote(&gov.RevealVoteTx{
		DAO:        dao,
		ProposalID: req.ProposalID,
		Voter:      voter,
		Vote:       vote,
		Salt:       salt,
	}, signer)
	s.metrics.observe("reveal_vote", err)
	if err != nil {
		return s.fail(c, err)
	}

	return c.JSON(http.StatusOK, map[string]string{"status": "revealed"})
}

func (s *Server) handleFinalizeProposal(c echo.Context) error {
	req, _, dao, err := s.proposalRef(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}

	proposal, err := s.processor.ProcessFinalizeProposal(&gov.FinalizeProposalTx{DAO: dao, ProposalID: req.ProposalID})
	s.metrics.observe("finalize_proposal", err)
	if err != nil {
		return s.fail(c, err)
	}

	return c.JSON(http.StatusOK, proposalResponse(proposal))
}

type executeProposalRequest struct {
	Signer      string `json:"signer"`
	DAO         string `json:"dao"`
	ProposalID  uint64 `json:"proposal_id"`
	Recipient   string `json:"recipient"`
	TokenMint   string `json:"token_mint"`
	SourceOwner string `json:"source_owner"`
}

func (s *Server) handleExecuteProposal(c echo.Context) error {
	var req executeProposalRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	signer, err := parsePubKey(req.Signer)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid signer key"})
	}

	dao, err := types.HashFromString(req.DAO)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid dao address"})
	}

	recipient, err := parsePubKey(req.Recipient)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid recipient key"})
	}

	err = s.processor.ProcessExecuteProposal(&gov.ExecuteProposalTx{
		DAO:         dao,
		ProposalID:  req.ProposalID,
		Recipient:   recipient,
		TokenMint:   req.TokenMint,
		SourceOwner: req.SourceOwner,
	}, signer)
	s.metrics.observe("execute_proposal", err)
	if err != nil {
		return s.fail(c, err)
	}

	return c.JSON(http.StatusOK, map[string]string{"status": "executed"})
}

type depositTreasuryRequest struct {
	DAO            string `json:"dao"`
	AmountLamports uint64 `json:"amount_lamports"`
}

func (s *Server) handleDepositTreasury(c echo.Context) error {
	var req depositTreasuryRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	dao, err := types.HashFromString(req.DAO)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid dao address"})
	}

	err = s.processor.ProcessDepositTreasury(&gov.DepositTreasuryTx{DAO: dao, AmountLamports: req.AmountLamports})
	s.metrics.observe("deposit_treasury", err)
	if err != nil {
		return s.fail(c, err)
	}

	return c.JSON(http.StatusOK, map[string]string{"status": "deposited"})
}

type voterWeightRequest struct {
	Signer       string `json:"signer"`
	DAO          string `json:"dao"`
	WeightAction string `json:"weight_action"`
	ActionTarget string `json:"action_target"`
}

func (s *Server) handleUpdateVoterWeight(c echo.Context) error {
	var req voterWeightRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	signer, err := parsePubKey(req.Signer)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid signer key"})
	}

	dao, err := types.HashFromString(req.DAO)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid dao address"})
	}

	var action gov.WeightAction
	switch req.WeightAction {
	case "", "none":
		action = gov.WeightActionNone
	case "cast_vote":
		action = gov.WeightActionCastVote
	case "create_proposal":
		action = gov.WeightActionCreateProposal
	default:
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "unknown weight action"})
	}

	tx := gov.UpdateVoterWeightRecordTx{DAO: dao, WeightAction: action}
	if req.ActionTarget != "" {
		target, terr := types.HashFromString(req.ActionTarget)
		if terr != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid action target"})
		}
		tx.ActionTarget = target
	}

	record, err := s.processor.ProcessUpdateVoterWeightRecord(&tx, signer)
	s.metrics.observe("update_voter_weight_record", err)
	if err != nil {
		return s.fail(c, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"realm":               record.Realm.String(),
		"governing_mint":      record.GoverningTokenMint,
		"governing_owner":     record.GoverningTokenOwner.String(),
		"voter_weight":        record.VoterWeight,
		"voter_weight_expiry": record.VoterWeightExpiry,
	})
}

// Read handlers.

func (s *Server) handleGetDAO(c echo.Context) error {
	addr, err := types.HashFromString(c.Param("address"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid dao address"})
	}

	dao, err := s.state.GetDAO(addr)
	if err != nil {
		return s.fail(c, err)
	}

	return c.JSON(http.StatusOK, daoResponse(dao))
}

func (s *Server) handleGetProposal(c echo.Context) error {
	dao, id, err := s.proposalParams(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid proposal reference"})
	}

	proposal, err := s.state.GetProposal(dao, id)
	if err != nil {
		return s.fail(c, err)
	}

	return c.JSON(http.StatusOK, proposalResponse(proposal))
}

func (s *Server) handleGetVoterRecord(c echo.Context) error {
	dao, id, err := s.proposalParams(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid proposal reference"})
	}

	voter, err := parsePubKey(c.Param("voter"))
	if err != nil || voter == nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid voter key"})
	}

	proposal, err := s.state.GetProposal(dao, id)
	if err != nil {
		return s.fail(c, err)
	}

	record, ok := s.state.VoterRecords[gov.VoterRecordAddress(proposal.Address, voter)]
	if !ok {
		return s.fail(c, gov.ErrVoterRecordNotFound)
	}

	return c.JSON(http.StatusOK, voterRecordResponse(record))
}

func (s *Server) handleGetTreasury(c echo.Context) error {
	dao, err := types.HashFromString(c.Param("dao"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid dao address"})
	}

	treasury, err := s.state.GetTreasury(dao)
	if err != nil {
		return s.fail(c, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"address":  treasury.Address.String(),
		"dao":      treasury.DAO.String(),
		"lamports": s.native.Balance(treasury.Address),
	})
}

func (s *Server) handleGetTokenBalance(c echo.Context) error {
	mint := c.Param("mint")
	if _, ok := s.tokens.GetMint(mint); !ok {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "unknown mint"})
	}

	owner := c.Param("owner")
	return c.JSON(http.StatusOK, map[string]interface{}{
		"mint":    mint,
		"owner":   owner,
		"balance": s.tokens.Balance(mint, owner),
		"supply":  s.tokens.Supply(mint),
	})
}

func (s *Server) proposalParams(c echo.Context) (types.Hash, uint64, error) {
	dao, err := types.HashFromString(c.Param("dao"))
	if err != nil {
		return types.Hash{}, 0, err
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return types.Hash{}, 0, err
	}

	return dao, id, nil
}

func (s *Server) handleWebSocket(c echo.Context) error {
	conn, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	s.eventBus.register <- conn

	// Drain reads until the client goes away.
	go func() {
		defer func() { s.eventBus.unregister <- conn }()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	return nil
}

// Response shapes.

func daoResponse(dao *gov.DAOAccount) map[string]interface{} {
	resp := map[string]interface{}{
		"address":               dao.Address.String(),
		"authority":             dao.Authority.String(),
		"name":                  dao.Name,
		"governance_token_mint": dao.GovernanceTokenMint,
		"quorum_percentage":     dao.QuorumPercentage,
		"min_tokens_to_vote":    dao.MinTokensToVote,
		"reveal_window_secs":    dao.RevealWindowSecs,
		"execution_delay_secs":  dao.ExecutionDelaySecs,
		"proposal_count":        dao.ProposalCount,
	}
	if !dao.MigratedFrom.IsZero() {
		resp["migrated_from"] = dao.MigratedFrom.String()
	}
	return resp
}

func proposalResponse(p *gov.ProposalAccount) map[string]interface{} {
	resp := map[string]interface{}{
		"address":              p.Address.String(),
		"dao":                  p.DAO.String(),
		"proposal_id":          p.ProposalID,
		"title":                p.Title,
		"description":          p.Description,
		"status":               p.Status.String(),
		"voting_end":           p.VotingEnd,
		"reveal_end":           p.RevealEnd,
		"yes_capital":          p.YesCapital,
		"no_capital":           p.NoCapital,
		"yes_community":        p.YesCommunity,
		"no_community":         p.NoCommunity,
		"commit_count":         p.CommitCount,
		"reveal_count":         p.RevealCount,
		"execution_unlocks_at": p.ExecutionUnlocksAt,
		"is_executed":          p.IsExecuted,
	}
	if p.TreasuryAction != nil {
		resp["treasury_action"] = map[string]interface{}{
			"kind":            p.TreasuryAction.Kind,
			"amount_lamports": p.TreasuryAction.AmountLamports,
			"recipient":       p.TreasuryAction.Recipient.String(),
			"token_mint":      p.TreasuryAction.TokenMint,
		}
	}
	return resp
}

func voterRecordResponse(r *gov.VoterRecord) map[string]interface{} {
	resp := map[string]interface{}{
		"proposal":         r.Proposal.String(),
		"voter":            r.Voter.String(),
		"commitment":       r.Commitment.String(),
		"weight_capital":   r.WeightCapital,
		"weight_community": r.WeightCommunity,
		"revealed":         r.Revealed,
	}
	if len(r.RevealAuthority) != 0 {
		resp["reveal_authority"] = r.RevealAuthority.String()
	}
	return resp
}
