package protocol

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
	"github.com/vmihailenco/msgpack/v5/msgpcode"
)

// PlayerAction is one client intent. Payload-free variants are UnitAction
// values and travel as a bare string; every other variant is a struct and
// travels as {"Name": {fields}}.
type PlayerAction interface {
	ActionName() string
	isPlayerAction()
}

// UnitAction is a payload-free action.
type UnitAction string

const (
	ActionAttack                  UnitAction = "Attack"
	ActionInteract                UnitAction = "Interact"
	ActionAssignTask              UnitAction = "AssignTask"
	ActionOpenBuildMenu           UnitAction = "OpenBuildMenu"
	ActionCrankStart              UnitAction = "CrankStart"
	ActionCrankStop               UnitAction = "CrankStop"
	ActionUpgradeWheel            UnitAction = "UpgradeWheel"
	ActionUnassignAgentFromWheel  UnitAction = "UnassignAgentFromWheel"
	ActionRollbackAgent           UnitAction = "RollbackAgent"
	ActionDebugToggleSpawning     UnitAction = "DebugToggleSpawning"
	ActionDebugClearRogues        UnitAction = "DebugClearRogues"
	ActionDebugToggleGodMode      UnitAction = "DebugToggleGodMode"
	ActionDebugHealPlayer         UnitAction = "DebugHealPlayer"
	ActionDebugClearAgents        UnitAction = "DebugClearAgents"
	ActionInitializeProjects      UnitAction = "InitializeProjects"
	ActionResetProjects           UnitAction = "ResetProjects"
	ActionDebugUnlockAllBuildings UnitAction = "DebugUnlockAllBuildings"
	ActionDebugLockAllBuildings   UnitAction = "DebugLockAllBuildings"
)

func (a UnitAction) ActionName() string { return string(a) }
func (UnitAction) isPlayerAction()      {}

// Known reports whether a is one of the unit variants the server accepts.
func (a UnitAction) Known() bool {
	switch a {
	case ActionAttack, ActionInteract, ActionAssignTask, ActionOpenBuildMenu, ActionCrankStart,
		ActionCrankStop, ActionUpgradeWheel, ActionUnassignAgentFromWheel, ActionRollbackAgent,
		ActionDebugToggleSpawning, ActionDebugClearRogues, ActionDebugToggleGodMode,
		ActionDebugHealPlayer, ActionDebugClearAgents, ActionInitializeProjects, ActionResetProjects,
		ActionDebugUnlockAllBuildings, ActionDebugLockAllBuildings:
		return true
	}
	return false
}

type PlaceBuilding struct {
	BuildingType BuildingType `msgpack:"building_type" json:"building_type"`
	X            float32      `msgpack:"x" json:"x"`
	Y            float32      `msgpack:"y" json:"y"`
}

type RecruitAgent struct {
	EntityID uint64 `msgpack:"entity_id" json:"entity_id"`
}

type AssignAgentToWheel struct {
	AgentID uint64 `msgpack:"agent_id" json:"agent_id"`
}

type EquipWeapon struct {
	WeaponID string `msgpack:"weapon_id" json:"weapon_id"`
}

type EquipArmor struct {
	ArmorID string `msgpack:"armor_id" json:"armor_id"`
}

type CraftItem struct {
	RecipeID string `msgpack:"recipe_id" json:"recipe_id"`
}

type OpenChest struct {
	WX int32 `msgpack:"wx" json:"wx"`
	WY int32 `msgpack:"wy" json:"wy"`
}

type PurchaseUpgrade struct {
	UpgradeID string `msgpack:"upgrade_id" json:"upgrade_id"`
}

type AddInventoryItem struct {
	ItemType string `msgpack:"item_type" json:"item_type"`
	Count    uint32 `msgpack:"count" json:"count"`
}

type RemoveInventoryItem struct {
	ItemType string `msgpack:"item_type" json:"item_type"`
	Count    uint32 `msgpack:"count" json:"count"`
}

type DebugSetTokens struct {
	Amount int64 `msgpack:"amount" json:"amount"`
}

type DebugAddTokens struct {
	Amount int64 `msgpack:"amount" json:"amount"`
}

type DebugSetPhase struct {
	Phase string `msgpack:"phase" json:"phase"`
}

type DebugSetCrankTier struct {
	Tier string `msgpack:"tier" json:"tier"`
}

type DebugSpawnRogue struct {
	RogueType RogueType `msgpack:"rogue_type" json:"rogue_type"`
}

type DebugSpawnAgent struct {
	Tier AgentTier `msgpack:"tier" json:"tier"`
}

type SetProjectDirectory struct {
	Path string `msgpack:"path" json:"path"`
}

type StartDevServer struct {
	BuildingID string `msgpack:"building_id" json:"building_id"`
}

type StopDevServer struct {
	BuildingID string `msgpack:"building_id" json:"building_id"`
}

type AssignAgentToProject struct {
	AgentID    uint64 `msgpack:"agent_id" json:"agent_id"`
	BuildingID string `msgpack:"building_id" json:"building_id"`
}

type UnassignAgentFromProject struct {
	AgentID    uint64 `msgpack:"agent_id" json:"agent_id"`
	BuildingID string `msgpack:"building_id" json:"building_id"`
}

type UnlockBuilding struct {
	BuildingID string `msgpack:"building_id" json:"building_id"`
}

type VibeInput struct {
	AgentID uint64 `msgpack:"agent_id" json:"agent_id"`
	Data    string `msgpack:"data" json:"data"`
}

type SetMistralApiKey struct {
	Key string `msgpack:"key" json:"key"`
}

func (PlaceBuilding) ActionName() string            { return "PlaceBuilding" }
func (RecruitAgent) ActionName() string             { return "RecruitAgent" }
func (AssignAgentToWheel) ActionName() string       { return "AssignAgentToWheel" }
func (EquipWeapon) ActionName() string              { return "EquipWeapon" }
func (EquipArmor) ActionName() string               { return "EquipArmor" }
func (CraftItem) ActionName() string                { return "CraftItem" }
func (OpenChest) ActionName() string                { return "OpenChest" }
func (PurchaseUpgrade) ActionName() string          { return "PurchaseUpgrade" }
func (AddInventoryItem) ActionName() string         { return "AddInventoryItem" }
func (RemoveInventoryItem) ActionName() string      { return "RemoveInventoryItem" }
func (DebugSetTokens) ActionName() string           { return "DebugSetTokens" }
func (DebugAddTokens) ActionName() string           { return "DebugAddTokens" }
func (DebugSetPhase) ActionName() string            { return "DebugSetPhase" }
func (DebugSetCrankTier) ActionName() string        { return "DebugSetCrankTier" }
func (DebugSpawnRogue) ActionName() string          { return "DebugSpawnRogue" }
func (DebugSpawnAgent) ActionName() string          { return "DebugSpawnAgent" }
func (SetProjectDirectory) ActionName() string      { return "SetProjectDirectory" }
func (StartDevServer) ActionName() string           { return "StartDevServer" }
func (StopDevServer) ActionName() string            { return "StopDevServer" }
func (AssignAgentToProject) ActionName() string     { return "AssignAgentToProject" }
func (UnassignAgentFromProject) ActionName() string { return "UnassignAgentFromProject" }
func (UnlockBuilding) ActionName() string           { return "UnlockBuilding" }
func (VibeInput) ActionName() string                { return "VibeInput" }
func (SetMistralApiKey) ActionName() string         { return "SetMistralApiKey" }

func (PlaceBuilding) isPlayerAction()            {}
func (RecruitAgent) isPlayerAction()             {}
func (AssignAgentToWheel) isPlayerAction()       {}
func (EquipWeapon) isPlayerAction()              {}
func (EquipArmor) isPlayerAction()               {}
func (CraftItem) isPlayerAction()                {}
func (OpenChest) isPlayerAction()                {}
func (PurchaseUpgrade) isPlayerAction()          {}
func (AddInventoryItem) isPlayerAction()         {}
func (RemoveInventoryItem) isPlayerAction()      {}
func (DebugSetTokens) isPlayerAction()           {}
func (DebugAddTokens) isPlayerAction()           {}
func (DebugSetPhase) isPlayerAction()            {}
func (DebugSetCrankTier) isPlayerAction()        {}
func (DebugSpawnRogue) isPlayerAction()          {}
func (DebugSpawnAgent) isPlayerAction()          {}
func (SetProjectDirectory) isPlayerAction()      {}
func (StartDevServer) isPlayerAction()           {}
func (StopDevServer) isPlayerAction()            {}
func (AssignAgentToProject) isPlayerAction()     {}
func (UnassignAgentFromProject) isPlayerAction() {}
func (UnlockBuilding) isPlayerAction()           {}
func (VibeInput) isPlayerAction()                {}
func (SetMistralApiKey) isPlayerAction()         {}

func encodeAction(enc *msgpack.Encoder, a PlayerAction) error {
	switch v := a.(type) {
	case nil:
		return enc.EncodeNil()
	case UnitAction:
		if !v.Known() {
			return &VariantError{Union: "PlayerAction", Variant: string(v), Err: ErrUnknownVariant}
		}
		return enc.EncodeString(string(v))
	case PlaceBuilding:
		return writeTagged(enc, "PlaceBuilding", v)
	case RecruitAgent:
		return writeTagged(enc, "RecruitAgent", v)
	case AssignAgentToWheel:
		return writeTagged(enc, "AssignAgentToWheel", v)
	case EquipWeapon:
		return writeTagged(enc, "EquipWeapon", v)
	case EquipArmor:
		return writeTagged(enc, "EquipArmor", v)
	case CraftItem:
		return writeTagged(enc, "CraftItem", v)
	case OpenChest:
		return writeTagged(enc, "OpenChest", v)
	case PurchaseUpgrade:
		return writeTagged(enc, "PurchaseUpgrade", v)
	case AddInventoryItem:
		return writeTagged(enc, "AddInventoryItem", v)
	case RemoveInventoryItem:
		return writeTagged(enc, "RemoveInventoryItem", v)
	case DebugSetTokens:
		return writeTagged(enc, "DebugSetTokens", v)
	case DebugAddTokens:
		return writeTagged(enc, "DebugAddTokens", v)
	case DebugSetPhase:
		return writeTagged(enc, "DebugSetPhase", v)
	case DebugSetCrankTier:
		return writeTagged(enc, "DebugSetCrankTier", v)
	case DebugSpawnRogue:
		return writeTagged(enc, "DebugSpawnRogue", v)
	case DebugSpawnAgent:
		return writeTagged(enc, "DebugSpawnAgent", v)
	case SetProjectDirectory:
		return writeTagged(enc, "SetProjectDirectory", v)
	case StartDevServer:
		return writeTagged(enc, "StartDevServer", v)
	case StopDevServer:
		return writeTagged(enc, "StopDevServer", v)
	case AssignAgentToProject:
		return writeTagged(enc, "AssignAgentToProject", v)
	case UnassignAgentFromProject:
		return writeTagged(enc, "UnassignAgentFromProject", v)
	case UnlockBuilding:
		return writeTagged(enc, "UnlockBuilding", v)
	case VibeInput:
		return writeTagged(enc, "VibeInput", v)
	case SetMistralApiKey:
		return writeTagged(enc, "SetMistralApiKey", v)
	default:
		return fmt.Errorf("%w: action %T", ErrUnencodableType, a)
	}
}

func decodeAction(dec *msgpack.Decoder) (PlayerAction, error) {
	name, unit, err := readTag(dec)
	if err != nil {
		return nil, err
	}
	if ua := UnitAction(name); ua.Known() {
		if !unit {
			if err := skipUnitPayload(dec); err != nil {
				return nil, &VariantError{Union: "PlayerAction", Variant: name, Err: err}
			}
		}
		return ua, nil
	}
	if unit {
		return nil, &VariantError{Union: "PlayerAction", Variant: name, Err: ErrMissingPayload}
	}
	var a PlayerAction
	switch name {
	case "PlaceBuilding":
		var v PlaceBuilding
		err = dec.Decode(&v)
		a = v
	case "RecruitAgent":
		var v RecruitAgent
		err = dec.Decode(&v)
		a = v
	case "AssignAgentToWheel":
		var v AssignAgentToWheel
		err = dec.Decode(&v)
		a = v
	case "EquipWeapon":
		var v EquipWeapon
		err = dec.Decode(&v)
		a = v
	case "EquipArmor":
		var v EquipArmor
		err = dec.Decode(&v)
		a = v
	case "CraftItem":
		var v CraftItem
		err = dec.Decode(&v)
		a = v
	case "OpenChest":
		var v OpenChest
		err = dec.Decode(&v)
		a = v
	case "PurchaseUpgrade":
		var v PurchaseUpgrade
		err = dec.Decode(&v)
		a = v
	case "AddInventoryItem":
		var v AddInventoryItem
		err = dec.Decode(&v)
		a = v
	case "RemoveInventoryItem":
		var v RemoveInventoryItem
		err = dec.Decode(&v)
		a = v
	case "DebugSetTokens":
		var v DebugSetTokens
		err = dec.Decode(&v)
		a = v
	case "DebugAddTokens":
		var v DebugAddTokens
		err = dec.Decode(&v)
		a = v
	case "DebugSetPhase":
		var v DebugSetPhase
		err = dec.Decode(&v)
		a = v
	case "DebugSetCrankTier":
		var v DebugSetCrankTier
		err = dec.Decode(&v)
		a = v
	case "DebugSpawnRogue":
		var v DebugSpawnRogue
		err = dec.Decode(&v)
		a = v
	case "DebugSpawnAgent":
		var v DebugSpawnAgent
		err = dec.Decode(&v)
		a = v
	case "SetProjectDirectory":
		var v SetProjectDirectory
		err = dec.Decode(&v)
		a = v
	case "StartDevServer":
		var v StartDevServer
		err = dec.Decode(&v)
		a = v
	case "StopDevServer":
		var v StopDevServer
		err = dec.Decode(&v)
		a = v
	case "AssignAgentToProject":
		var v AssignAgentToProject
		err = dec.Decode(&v)
		a = v
	case "UnassignAgentFromProject":
		var v UnassignAgentFromProject
		err = dec.Decode(&v)
		a = v
	case "UnlockBuilding":
		var v UnlockBuilding
		err = dec.Decode(&v)
		a = v
	case "VibeInput":
		var v VibeInput
		err = dec.Decode(&v)
		a = v
	case "SetMistralApiKey":
		var v SetMistralApiKey
		err = dec.Decode(&v)
		a = v
	default:
		return nil, &VariantError{Union: "PlayerAction", Variant: name, Err: ErrUnknownVariant}
	}
	if err != nil {
		return nil, &VariantError{Union: "PlayerAction", Variant: name, Err: err}
	}
	return a, nil
}

func decodeOptionalAction(dec *msgpack.Decoder) (PlayerAction, error) {
	null, err := isNext(dec, msgpcode.Nil)
	if err != nil {
		return nil, err
	}
	if null {
		return nil, dec.DecodeNil()
	}
	return decodeAction(dec)
}

// actionValue adapts a PlayerAction to the codec.
type actionValue struct{ PlayerAction }

func (v actionValue) EncodeMsgpack(enc *msgpack.Encoder) error {
	return encodeAction(enc, v.PlayerAction)
}

func (v *actionValue) DecodeMsgpack(dec *msgpack.Decoder) error {
	a, err := decodeAction(dec)
	v.PlayerAction = a
	return err
}

func EncodeAction(a PlayerAction) ([]byte, error) {
	return Marshal(actionValue{a})
}

func DecodeAction(b []byte) (PlayerAction, error) {
	var v actionValue
	if err := Unmarshal(b, &v); err != nil {
		return nil, err
	}
	return v.PlayerAction, nil
}
