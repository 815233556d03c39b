package protocol

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

type EntityKind string

const (
	KindAgent      EntityKind = "Agent"
	KindBuilding   EntityKind = "Building"
	KindRogue      EntityKind = "Rogue"
	KindItem       EntityKind = "Item"
	KindProjectile EntityKind = "Projectile"
)

type AgentState string

const (
	AgentIdle         AgentState = "Idle"
	AgentWalking      AgentState = "Walking"
	AgentBuilding     AgentState = "Building"
	AgentErroring     AgentState = "Erroring"
	AgentExploring    AgentState = "Exploring"
	AgentDefending    AgentState = "Defending"
	AgentCritical     AgentState = "Critical"
	AgentUnresponsive AgentState = "Unresponsive"
	AgentDormant      AgentState = "Dormant"
)

type AgentTier string

const (
	TierApprentice AgentTier = "Apprentice"
	TierJourneyman AgentTier = "Journeyman"
	TierArtisan    AgentTier = "Artisan"
	TierArchitect  AgentTier = "Architect"
)

type BuildingType string

const (
	BuildingPylon            BuildingType = "Pylon"
	BuildingComputeFarm      BuildingType = "ComputeFarm"
	BuildingTodoApp          BuildingType = "TodoApp"
	BuildingCalculator       BuildingType = "Calculator"
	BuildingLandingPage      BuildingType = "LandingPage"
	BuildingWeatherDashboard BuildingType = "WeatherDashboard"
	BuildingChatApp          BuildingType = "ChatApp"
	BuildingKanbanBoard      BuildingType = "KanbanBoard"
	BuildingEcommerceStore   BuildingType = "EcommerceStore"
	BuildingAiImageGenerator BuildingType = "AiImageGenerator"
	BuildingApiDashboard     BuildingType = "ApiDashboard"
	BuildingBlockchain       BuildingType = "Blockchain"
	BuildingTokenWheel       BuildingType = "TokenWheel"
	BuildingCraftingTable    BuildingType = "CraftingTable"
)

type RogueType string

const (
	RogueCorruptor  RogueType = "Corruptor"
	RogueLooper     RogueType = "Looper"
	RogueTokenDrain RogueType = "TokenDrain"
	RogueAssassin   RogueType = "Assassin"
	RogueSwarm      RogueType = "Swarm"
	RogueMimic      RogueType = "Mimic"
	RogueArchitect  RogueType = "Architect"
)

// EntityData is the kind-specific payload of an entity. The variant set is
// closed: AgentData, BuildingData, RogueData, ItemData and ProjectileData.
type EntityData interface {
	DataKind() EntityKind
	isEntityData()
}

type AgentData struct {
	Name            string     `msgpack:"name" json:"name"`
	State           AgentState `msgpack:"state" json:"state"`
	Tier            AgentTier  `msgpack:"tier" json:"tier"`
	HealthPct       float32    `msgpack:"health_pct" json:"health_pct"`
	MoralePct       float32    `msgpack:"morale_pct" json:"morale_pct"`
	Stars           uint8      `msgpack:"stars" json:"stars"`
	TurnsUsed       uint32     `msgpack:"turns_used" json:"turns_used"`
	MaxTurns        uint32     `msgpack:"max_turns" json:"max_turns"`
	ModelLoreName   string     `msgpack:"model_lore_name" json:"model_lore_name"`
	XP              uint64     `msgpack:"xp" json:"xp"`
	Level           uint32     `msgpack:"level" json:"level"`
	RecruitableCost *int64     `msgpack:"recruitable_cost" json:"recruitable_cost"`
	Bound           bool       `msgpack:"bound" json:"bound"`
}

type BuildingData struct {
	BuildingType    BuildingType `msgpack:"building_type" json:"building_type"`
	ConstructionPct float32      `msgpack:"construction_pct" json:"construction_pct"`
	HealthPct       float32      `msgpack:"health_pct" json:"health_pct"`
}

type RogueData struct {
	RogueType RogueType `msgpack:"rogue_type" json:"rogue_type"`
	HealthPct float32   `msgpack:"health_pct" json:"health_pct"`
}

type ItemData struct {
	ItemType string `msgpack:"item_type" json:"item_type"`
}

type ProjectileData struct {
	DX float32 `msgpack:"dx" json:"dx"`
	DY float32 `msgpack:"dy" json:"dy"`
}

func (AgentData) DataKind() EntityKind      { return KindAgent }
func (BuildingData) DataKind() EntityKind   { return KindBuilding }
func (RogueData) DataKind() EntityKind      { return KindRogue }
func (ItemData) DataKind() EntityKind       { return KindItem }
func (ProjectileData) DataKind() EntityKind { return KindProjectile }

func (AgentData) isEntityData()      {}
func (BuildingData) isEntityData()   {}
func (RogueData) isEntityData()      {}
func (ItemData) isEntityData()       {}
func (ProjectileData) isEntityData() {}

// EntityDelta is the full state of one entity as of the update carrying it.
// It replaces whatever was stored for the same id; fields are never merged.
type EntityDelta struct {
	ID       EntityID   `json:"id"`
	Kind     EntityKind `json:"kind"`
	Position Vec2       `json:"position"`
	Data     EntityData `json:"data"`
}

func (d EntityDelta) EncodeMsgpack(enc *msgpack.Encoder) error {
	if err := enc.EncodeMapLen(4); err != nil {
		return err
	}
	if err := enc.EncodeString("id"); err != nil {
		return err
	}
	if err := enc.EncodeUint(d.ID); err != nil {
		return err
	}
	if err := enc.EncodeString("kind"); err != nil {
		return err
	}
	if err := enc.EncodeString(string(d.Kind)); err != nil {
		return err
	}
	if err := enc.EncodeString("position"); err != nil {
		return err
	}
	if err := enc.Encode(d.Position); err != nil {
		return err
	}
	if err := enc.EncodeString("data"); err != nil {
		return err
	}
	return encodeEntityData(enc, d.Data)
}

func (d *EntityDelta) DecodeMsgpack(dec *msgpack.Decoder) error {
	n, err := dec.DecodeMapLen()
	if err != nil {
		return err
	}
	if n < 0 {
		return fmt.Errorf("entity delta: nil")
	}
	*d = EntityDelta{}
	for i := 0; i < n; i++ {
		key, err := dec.DecodeString()
		if err != nil {
			return err
		}
		switch key {
		case "id":
			d.ID, err = dec.DecodeUint64()
		case "kind":
			var s string
			s, err = dec.DecodeString()
			d.Kind = EntityKind(s)
		case "position":
			err = dec.Decode(&d.Position)
		case "data":
			d.Data, err = decodeEntityData(dec)
		default:
			err = dec.Skip()
		}
		if err != nil {
			return fmt.Errorf("entity delta %q: %w", key, err)
		}
	}
	return nil
}

func encodeEntityData(enc *msgpack.Encoder, data EntityData) error {
	switch v := data.(type) {
	case AgentData:
		return writeTagged(enc, string(KindAgent), v)
	case BuildingData:
		return writeTagged(enc, string(KindBuilding), v)
	case RogueData:
		return writeTagged(enc, string(KindRogue), v)
	case ItemData:
		return writeTagged(enc, string(KindItem), v)
	case ProjectileData:
		return writeTagged(enc, string(KindProjectile), v)
	default:
		return fmt.Errorf("%w: entity data %T", ErrUnencodableType, data)
	}
}

func decodeEntityData(dec *msgpack.Decoder) (EntityData, error) {
	name, unit, err := readTag(dec)
	if err != nil {
		return nil, err
	}
	if unit {
		return nil, &VariantError{Union: "EntityData", Variant: name, Err: ErrMissingPayload}
	}
	switch EntityKind(name) {
	case KindAgent:
		var v AgentData
		err = dec.Decode(&v)
		return v, err
	case KindBuilding:
		var v BuildingData
		err = dec.Decode(&v)
		return v, err
	case KindRogue:
		var v RogueData
		err = dec.Decode(&v)
		return v, err
	case KindItem:
		var v ItemData
		err = dec.Decode(&v)
		return v, err
	case KindProjectile:
		var v ProjectileData
		err = dec.Decode(&v)
		return v, err
	default:
		return nil, &VariantError{Union: "EntityData", Variant: name, Err: ErrUnknownVariant}
	}
}
