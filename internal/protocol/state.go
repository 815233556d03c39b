package protocol

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

type PlayerSnapshot struct {
	Position          Vec2    `msgpack:"position" json:"position"`
	Health            float32 `msgpack:"health" json:"health"`
	MaxHealth         float32 `msgpack:"max_health" json:"max_health"`
	Tokens            int64   `msgpack:"tokens" json:"tokens"`
	TorchRange        float32 `msgpack:"torch_range" json:"torch_range"`
	Facing            Vec2    `msgpack:"facing" json:"facing"`
	Dead              bool    `msgpack:"dead" json:"dead"`
	DeathTimer        float32 `msgpack:"death_timer" json:"death_timer"`
	AttackCooldownPct float32 `msgpack:"attack_cooldown_pct" json:"attack_cooldown_pct"`
}

type ChunkPos struct {
	X int32 `msgpack:"x" json:"x"`
	Y int32 `msgpack:"y" json:"y"`
}

type FogTile struct {
	LightLevel float32 `msgpack:"light_level" json:"light_level"`
}

// FogUpdate is the (chunk, tiles) pair; it travels as a two-element array.
type FogUpdate struct {
	Chunk ChunkPos  `json:"chunk"`
	Tiles []FogTile `json:"tiles"`
}

func (f FogUpdate) EncodeMsgpack(enc *msgpack.Encoder) error {
	if err := enc.EncodeArrayLen(2); err != nil {
		return err
	}
	if err := enc.Encode(f.Chunk); err != nil {
		return err
	}
	return enc.Encode(f.Tiles)
}

func (f *FogUpdate) DecodeMsgpack(dec *msgpack.Decoder) error {
	if err := expectTuple(dec, 2); err != nil {
		return fmt.Errorf("fog update: %w", err)
	}
	if err := dec.Decode(&f.Chunk); err != nil {
		return err
	}
	return dec.Decode(&f.Tiles)
}

// ChestPos is a world tile coordinate pair, encoded as [x, y].
type ChestPos struct {
	X int32 `json:"x"`
	Y int32 `json:"y"`
}

func (p ChestPos) EncodeMsgpack(enc *msgpack.Encoder) error {
	if err := enc.EncodeArrayLen(2); err != nil {
		return err
	}
	if err := enc.EncodeInt(int64(p.X)); err != nil {
		return err
	}
	return enc.EncodeInt(int64(p.Y))
}

func (p *ChestPos) DecodeMsgpack(dec *msgpack.Decoder) error {
	if err := expectTuple(dec, 2); err != nil {
		return fmt.Errorf("chest pos: %w", err)
	}
	var err error
	if p.X, err = dec.DecodeInt32(); err != nil {
		return err
	}
	p.Y, err = dec.DecodeInt32()
	return err
}

func expectTuple(dec *msgpack.Decoder, want int) error {
	n, err := dec.DecodeArrayLen()
	if err != nil {
		return err
	}
	if n != want {
		return fmt.Errorf("want %d-tuple, got %d elements", want, n)
	}
	return nil
}

type LogCategory string

const (
	LogSystem      LogCategory = "System"
	LogAgent       LogCategory = "Agent"
	LogCombat      LogCategory = "Combat"
	LogEconomy     LogCategory = "Economy"
	LogExploration LogCategory = "Exploration"
	LogBuilding    LogCategory = "Building"
)

type LogEntry struct {
	Tick     Tick        `msgpack:"tick" json:"tick"`
	Text     string      `msgpack:"text" json:"text"`
	Category LogCategory `msgpack:"category" json:"category"`
}

type AudioEvent string

const (
	AudioAgentSpeak    AudioEvent = "AgentSpeak"
	AudioCombatHit     AudioEvent = "CombatHit"
	AudioBuildComplete AudioEvent = "BuildComplete"
	AudioRogueSpawn    AudioEvent = "RogueSpawn"
	AudioCrankTurn     AudioEvent = "CrankTurn"
	AudioAgentDeath    AudioEvent = "AgentDeath"
)

type EconomySnapshot struct {
	Balance           int64   `msgpack:"balance" json:"balance"`
	IncomePerSec      float64 `msgpack:"income_per_sec" json:"income_per_sec"`
	ExpenditurePerSec float64 `msgpack:"expenditure_per_sec" json:"expenditure_per_sec"`
}

type WheelSnapshot struct {
	Tier              string  `msgpack:"tier" json:"tier"`
	TokensPerRotation float64 `msgpack:"tokens_per_rotation" json:"tokens_per_rotation"`
	AgentBonusPerTick float64 `msgpack:"agent_bonus_per_tick" json:"agent_bonus_per_tick"`
	Heat              float32 `msgpack:"heat" json:"heat"`
	MaxHeat           float32 `msgpack:"max_heat" json:"max_heat"`
	IsCranking        bool    `msgpack:"is_cranking" json:"is_cranking"`
	AssignedAgentID   *uint64 `msgpack:"assigned_agent_id" json:"assigned_agent_id"`
	UpgradeCost       *int64  `msgpack:"upgrade_cost" json:"upgrade_cost"`
}

type DebugSnapshot struct {
	SpawningEnabled bool   `msgpack:"spawning_enabled" json:"spawning_enabled"`
	GodMode         bool   `msgpack:"god_mode" json:"god_mode"`
	Phase           string `msgpack:"phase" json:"phase"`
	CrankTier       string `msgpack:"crank_tier" json:"crank_tier"`
}

type ProjectManagerState struct {
	BaseDir           *string             `msgpack:"base_dir" json:"base_dir"`
	Initialized       bool                `msgpack:"initialized" json:"initialized"`
	UnlockedBuildings []string            `msgpack:"unlocked_buildings" json:"unlocked_buildings"`
	BuildingStatuses  map[string]string   `msgpack:"building_statuses" json:"building_statuses"`
	AgentAssignments  map[string][]uint64 `msgpack:"agent_assignments" json:"agent_assignments"`
}

type CombatEvent struct {
	X         float32    `msgpack:"x" json:"x"`
	Y         float32    `msgpack:"y" json:"y"`
	Damage    int32      `msgpack:"damage" json:"damage"`
	IsKill    bool       `msgpack:"is_kill" json:"is_kill"`
	RogueType *RogueType `msgpack:"rogue_type" json:"rogue_type"`
}

type ChestReward struct {
	ItemType string `msgpack:"item_type" json:"item_type"`
	Count    uint32 `msgpack:"count" json:"count"`
}

type InventoryItem struct {
	ItemType string `msgpack:"item_type" json:"item_type"`
	Count    uint32 `msgpack:"count" json:"count"`
}

// GameStateUpdate is the periodic server frame. Entities arrive as deltas:
// EntitiesChanged are full replacements, EntitiesRemoved are ids to drop.
type GameStateUpdate struct {
	Tick              Tick                 `msgpack:"tick" json:"tick"`
	Player            PlayerSnapshot       `msgpack:"player" json:"player"`
	EntitiesChanged   []EntityDelta        `msgpack:"entities_changed" json:"entities_changed"`
	EntitiesRemoved   []EntityID           `msgpack:"entities_removed" json:"entities_removed"`
	FogUpdates        []FogUpdate          `msgpack:"fog_updates" json:"fog_updates"`
	Economy           EconomySnapshot      `msgpack:"economy" json:"economy"`
	LogEntries        []LogEntry           `msgpack:"log_entries" json:"log_entries"`
	AudioTriggers     []AudioEvent         `msgpack:"audio_triggers" json:"audio_triggers"`
	Debug             DebugSnapshot        `msgpack:"debug" json:"debug"`
	Wheel             WheelSnapshot        `msgpack:"wheel" json:"wheel"`
	ProjectManager    *ProjectManagerState `msgpack:"project_manager" json:"project_manager"`
	CombatEvents      []CombatEvent        `msgpack:"combat_events" json:"combat_events"`
	PlayerHit         bool                 `msgpack:"player_hit" json:"player_hit"`
	PlayerHitDamage   int32                `msgpack:"player_hit_damage" json:"player_hit_damage"`
	Inventory         []InventoryItem      `msgpack:"inventory" json:"inventory"`
	PurchasedUpgrades []string             `msgpack:"purchased_upgrades" json:"purchased_upgrades"`
	OpenedChests      []ChestPos           `msgpack:"opened_chests" json:"opened_chests"`
	ChestRewards      []ChestReward        `msgpack:"chest_rewards" json:"chest_rewards"`
}

func (*GameStateUpdate) MessageTag() string { return TagGameState }
func (*GameStateUpdate) isServerMessage()   {}
