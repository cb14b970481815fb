package auth

// Authorizer decides whether a verified identity may operate on a wedding.
// It holds no mutable state and is safe for concurrent use.
type Authorizer struct {
	tokens          TokenVerifier
	legacyWeddingID string
	logger          Logger
	listeners       []DecisionListener
}

// AuthorizerOption configures an Authorizer
type AuthorizerOption func(*Authorizer)

// WithLegacyWeddingID enables legacy mode: legacy identities may act on
// the single deployment wedding id and nothing else. Without it every
// legacy identity is denied.
func WithLegacyWeddingID(id string) AuthorizerOption {
	return func(a *Authorizer) { a.legacyWeddingID = id }
}

// WithAuthorizerLogger sets the logger.
func WithAuthorizerLogger(l Logger) AuthorizerOption {
	return func(a *Authorizer) { a.logger = normalizeLogger(l) }
}

// WithDecisionListener registers a listener notified of every decision.
func WithDecisionListener(l DecisionListener) AuthorizerOption {
	return func(a *Authorizer) {
		if l != nil {
			a.listeners = append(a.listeners, l)
		}
	}
}

// NewAuthorizer returns an Authorizer backed by tokens.
func NewAuthorizer(tokens TokenVerifier, opts ...AuthorizerOption) *Authorizer {
	a := &Authorizer{
		tokens: tokens,
		logger: defaultLogger(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	return a
}

// Authenticate verifies a raw access token.
func (a *Authorizer) Authenticate(rawToken string) AccessDecision {
	d := a.authenticate(rawToken)
	a.notify(DecisionEvent{Stage: StageAuthenticate, Decision: d})
	return d
}

func (a *Authorizer) authenticate(rawToken string) AccessDecision {
	if a.tokens == nil {
		a.logger.Error("authorizer has no token verifier")
		return Deny(CodeInternalError)
	}

	verified, err := a.tokens.Verify(rawToken)
	if err != nil {
		code := CodeInvalidToken
		if IsTokenExpiredError(err) {
			code = CodeTokenExpired
		}
		a.logger.Debug("authentication rejected", "code", code, "error", err)
		return Deny(code)
	}

	return Allow(verified.Identity)
}

// AuthorizeForWedding decides if identity may act on wedding.
//
// Order matters: super and master first, then archived status, then
// legacy, then membership. An owner of an archived wedding gets ARCHIVED,
// not ACCESS_DENIED.
func (a *Authorizer) AuthorizeForWedding(identity Identity, wedding *Wedding) AccessDecision {
	var weddingID string
	if wedding != nil {
		weddingID = wedding.ID
	}

	d := a.authorizeForWedding(identity, wedding)
	if !d.Authenticated {
		a.logger.Debug("wedding access denied", "wedding_id", weddingID, "code", d.Code)
	}
	a.notify(DecisionEvent{Stage: StageAuthorize, WeddingID: weddingID, Decision: d})
	return d
}

func (a *Authorizer) authorizeForWedding(identity Identity, wedding *Wedding) AccessDecision {
	if identity == nil {
		return Deny(CodeInvalidToken)
	}
	if wedding == nil {
		return Deny(CodeNotFound)
	}
	return Visit[AccessDecision](identity, weddingPolicy{
		wedding:         wedding,
		legacyWeddingID: a.legacyWeddingID,
	})
}

// RequireSuper allows only fleet-wide identities.
func (a *Authorizer) RequireSuper(identity Identity) AccessDecision {
	var d AccessDecision
	switch {
	case identity == nil:
		d = Deny(CodeInvalidToken)
	case IsAtLeast(identity, RankSuper):
		d = Allow(identity)
	default:
		d = Deny(CodeAccessDenied)
	}
	a.notify(DecisionEvent{Stage: StageAuthorize, Decision: d})
	return d
}

func (a *Authorizer) notify(event DecisionEvent) {
	for _, l := range a.listeners {
		l.OnDecision(event)
	}
}

type weddingPolicy struct {
	wedding         *Wedding
	legacyWeddingID string
}

func (p weddingPolicy) VisitSuper(id SuperIdentity) AccessDecision {
	return Allow(id)
}

func (p weddingPolicy) VisitStaff(id StaffIdentity) AccessDecision {
	if p.wedding.IsArchived() {
		return Deny(CodeArchived)
	}
	if !id.CanAccess(p.wedding.ID) {
		return Deny(CodeAccessDenied)
	}
	return Allow(id)
}

func (p weddingPolicy) VisitOwner(id OwnerIdentity) AccessDecision {
	if p.wedding.IsArchived() {
		return Deny(CodeArchived)
	}
	if !id.CanAccess(p.wedding.ID) {
		return Deny(CodeAccessDenied)
	}
	return Allow(id)
}

func (p weddingPolicy) VisitLegacy(id LegacyIdentity) AccessDecision {
	if p.wedding.IsArchived() {
		return Deny(CodeArchived)
	}
	if p.legacyWeddingID == "" || p.wedding.ID != p.legacyWeddingID {
		return Deny(CodeAccessDenied)
	}
	return Allow(id)
}
