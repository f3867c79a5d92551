package landmark

// Anatomical names used throughout the engine.
const (
	Nose          = "nose"
	LeftShoulder  = "left_shoulder"
	RightShoulder = "right_shoulder"
	LeftHip       = "left_hip"
	RightHip      = "right_hip"
	LeftAnkle     = "left_ankle"
	RightAnkle    = "right_ankle"
)

// poseIndex is the pose detector's 33-point index scheme. This table is the
// only place numeric landmark indices are allowed to appear.
var poseIndex = [...]string{
	0:  Nose,
	1:  "left_eye_inner",
	2:  "left_eye",
	3:  "left_eye_outer",
	4:  "right_eye_inner",
	5:  "right_eye",
	6:  "right_eye_outer",
	7:  "left_ear",
	8:  "right_ear",
	9:  "mouth_left",
	10: "mouth_right",
	11: LeftShoulder,
	12: RightShoulder,
	13: "left_elbow",
	14: "right_elbow",
	15: "left_wrist",
	16: "right_wrist",
	17: "left_pinky",
	18: "right_pinky",
	19: "left_index",
	20: "right_index",
	21: "left_thumb",
	22: "right_thumb",
	23: LeftHip,
	24: RightHip,
	25: "left_knee",
	26: "right_knee",
	27: LeftAnkle,
	28: RightAnkle,
	29: "left_heel",
	30: "right_heel",
	31: "left_foot_index",
	32: "right_foot_index",
}

// PoseLandmarkCount is the number of points in a full pose
const PoseLandmarkCount = len(poseIndex)

// NameForIndex maps a detector index to its anatomical name
func NameForIndex(i int) (string, bool) {
	if i < 0 || i >= len(poseIndex) {
		return "", false
	}
	return poseIndex[i], true
}

// IndexForName is the reverse of NameForIndex
func IndexForName(name string) (int, bool) {
	for i, n := range poseIndex {
		if n == name {
			return i, true
		}
	}
	return -1, false
}
