// Package podcast holds the domain types shared by the generation pipeline,
// the workflow actor, and the persistence layer.
//
// Types here carry no behaviour beyond small helpers; the packages that own a
// lifecycle (store, workflow, pipeline, audio) import them so they can talk to
// each other without import cycles.
package podcast
