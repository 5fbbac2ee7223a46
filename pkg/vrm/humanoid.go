package vrm

// Humanoid parameter defaults. They are written for downstream
// compatibility and are not derived from the model.
const (
	DefaultArmStretch = 0.05
	DefaultLegStretch = 0.05
	DefaultTwist      = 0.5
)

// Humanoid maps the semantic bone vocabulary to node indices.
type Humanoid struct {
	HumanBones        []*HumanBone `json:"humanBones"`
	ArmStretch        float32      `json:"armStretch"`
	LegStretch        float32      `json:"legStretch"`
	UpperArmTwist     float32      `json:"upperArmTwist"`
	LowerArmTwist     float32      `json:"lowerArmTwist"`
	UpperLegTwist     float32      `json:"upperLegTwist"`
	LowerLegTwist     float32      `json:"lowerLegTwist"`
	FeetSpacing       float32      `json:"feetSpacing"`
	HasTranslationDoF bool         `json:"hasTranslationDoF"`
}

// NewHumanoid returns a humanoid record with the default deformation parameters.
func NewHumanoid() *Humanoid {
	return &Humanoid{
		HumanBones:    []*HumanBone{},
		ArmStretch:    DefaultArmStretch,
		LegStretch:    DefaultLegStretch,
		UpperArmTwist: DefaultTwist,
		LowerArmTwist: DefaultTwist,
		UpperLegTwist: DefaultTwist,
		LowerLegTwist: DefaultTwist,
	}
}

// HumanBone binds one vocabulary bone to a node.
type HumanBone struct {
	Bone             string `json:"bone"`
	Node             int    `json:"node"`
	UseDefaultValues bool   `json:"useDefaultValues"`
}

// Lookup returns the node index bound to bone.
func (h *Humanoid) Lookup(bone string) (int, bool) {
	for _, b := range h.HumanBones {
		if b.Bone == bone {
			return b.Node, true
		}
	}
	return 0, false
}

// MissingRequired returns the required bones that have no binding.
func (h *Humanoid) MissingRequired() []string {
	var missing []string
	for _, name := range RequiredBones {
		if _, ok := h.Lookup(name); !ok {
			missing = append(missing, name)
		}
	}
	return missing
}

// RequiredBones must be present for a valid humanoid.
var RequiredBones = []string{
	"hips", "spine", "chest", "neck", "head",
	"leftUpperArm", "leftLowerArm", "leftHand",
	"rightUpperArm", "rightLowerArm", "rightHand",
	"leftUpperLeg", "leftLowerLeg", "leftFoot",
	"rightUpperLeg", "rightLowerLeg", "rightFoot",
}

// HumanBones is the VRM 0.x bone vocabulary in output order.
var HumanBones = []string{
	"hips", "leftUpperLeg", "rightUpperLeg", "leftLowerLeg", "rightLowerLeg",
	"leftFoot", "rightFoot", "spine", "chest", "neck", "head",
	"leftShoulder", "rightShoulder", "leftUpperArm", "rightUpperArm",
	"leftLowerArm", "rightLowerArm", "leftHand", "rightHand",
	"leftToes", "rightToes", "leftEye", "rightEye", "jaw",
	"leftThumbProximal", "leftThumbIntermediate", "leftThumbDistal",
	"leftIndexProximal", "leftIndexIntermediate", "leftIndexDistal",
	"leftMiddleProximal", "leftMiddleIntermediate", "leftMiddleDistal",
	"leftRingProximal", "leftRingIntermediate", "leftRingDistal",
	"leftLittleProximal", "leftLittleIntermediate", "leftLittleDistal",
	"rightThumbProximal", "rightThumbIntermediate", "rightThumbDistal",
	"rightIndexProximal", "rightIndexIntermediate", "rightIndexDistal",
	"rightMiddleProximal", "rightMiddleIntermediate", "rightMiddleDistal",
	"rightRingProximal", "rightRingIntermediate", "rightRingDistal",
	"rightLittleProximal", "rightLittleIntermediate", "rightLittleDistal",
	"upperChest",
}

// VRM 1.0 renamed the thumb chain.
var boneAliases = map[string]string{
	"leftThumbMetacarpal":  "leftThumbProximal",
	"leftThumbProximal":    "leftThumbIntermediate",
	"rightThumbMetacarpal": "rightThumbProximal",
	"rightThumbProximal":   "rightThumbIntermediate",
}

// BoneName converts a VRM 1.0 bone name to its VRM 0.x equivalent.
// Names shared by both versions are returned unchanged.
func BoneName(v1 string) string {
	if name, ok := boneAliases[v1]; ok {
		return name
	}
	return v1
}

// IsHumanBone reports whether name is part of the VRM 0.x vocabulary.
func IsHumanBone(name string) bool {
	for _, b := range HumanBones {
		if b == name {
			return true
		}
	}
	return false
}
