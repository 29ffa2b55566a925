// Package research tracks which techs a save has unlocked or is researching.
//
// A tech is researchable when every tech it requires is unlocked; techs
// without requirements are always researchable. Renderers draw techs that
// are not researchable at [LockedOpacity].
//
// New saves start from [Default], which unlocks the pinned starting techs.
package research
