package protocol

// HELLO (client -> server)
type HelloMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	PlayerName      string `json:"player_name"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string         `json:"type"`
	ProtocolVersion string         `json:"protocol_version"`
	PlayerID        string         `json:"player_id"`
	WorldID         string         `json:"world_id"`
	TickRateHz      int            `json:"tick_rate_hz"`
	Catalogs        CatalogDigests `json:"catalogs"`
}

type CatalogDigests struct {
	BlockPalette string `json:"block_palette"`
	Species      string `json:"species"`
	Items        string `json:"items"`
	Habitats     string `json:"habitats"`
	Temperaments string `json:"temperaments"`
	Tuning       string `json:"tuning,omitempty"`
}

// UI (client -> server): one synchronous pasture-menu interaction.
type UIRequestMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ReqID           string `json:"req_id"`
	Action          string `json:"action"`
	Enclosure       [3]int `json:"enclosure"`
	RecordID        string `json:"record_id,omitempty"`
}

// UI_UPDATE (server -> client): the outcome of a UI request plus the
// enclosure layout to render.
type UIUpdateMsg struct {
	Type            string         `json:"type"`
	ProtocolVersion string         `json:"protocol_version"`
	ReqID           string         `json:"req_id"`
	Accepted        bool           `json:"accepted"`
	Code            string         `json:"code,omitempty"`
	Message         string         `json:"message,omitempty"`
	Tick            uint64         `json:"tick"`
	View            *CourtshipView `json:"view,omitempty"`
}

type CourtshipView struct {
	Enclosure          [3]int         `json:"enclosure"`
	Phase              string         `json:"phase"`
	ParentA            string         `json:"parent_a,omitempty"`
	ParentB            string         `json:"parent_b,omitempty"`
	SelectedA          string         `json:"selected_a,omitempty"`
	SelectedB          string         `json:"selected_b,omitempty"`
	Compatible         bool           `json:"compatible"`
	UniversalDonorPair bool           `json:"universal_donor_pair,omitempty"`
	QualityTier        int            `json:"quality_tier"`
	DurationTicks      int            `json:"duration_ticks"`
	ElapsedTicks       uint64         `json:"elapsed_ticks"`
	EggReady           bool           `json:"egg_ready"`
	Occupants          []OccupantView `json:"occupants"`
}

type OccupantView struct {
	RecordID string `json:"record_id"`
	OwnerID  string `json:"owner_id"`
	Species  string `json:"species"`
	Gender   string `json:"gender"`
	Nickname string `json:"nickname,omitempty"`
	Egg      bool   `json:"egg,omitempty"`
	Selected bool   `json:"selected,omitempty"`
}

// NOTICE (server -> client): chat-style messages and effect cues queued for
// the player since the last notice.
type NoticeMsg struct {
	Type            string       `json:"type"`
	ProtocolVersion string       `json:"protocol_version"`
	Tick            uint64       `json:"tick"`
	Messages        []string     `json:"messages,omitempty"`
	Effects         []EffectView `json:"effects,omitempty"`
}

type EffectView struct {
	Kind  string     `json:"kind"`
	Pos   [3]float64 `json:"pos"`
	Count int        `json:"count,omitempty"`
	Tier  int        `json:"tier,omitempty"`
}
