// Package message is the catalog of operations the host and viewer
// exchange: their kinds, payload types and typed send helpers.
package message

import (
	"fmt"

	"github.com/ensemblecast/ensemble/mux"
)

// Version is the protocol version both sides must agree on.
const Version uint64 = 1

// Message kinds. The values are on the wire; only append.
const (
	ViewerHandshake mux.Kind = iota
	HostHandshake
	Windows
	WindowPreview
	StartCasting
	StopCasting
	WindowFrame
	WindowMask
	StartWatchingChildren
	StopWatchingChildren
	ChildWindows
	MouseMoved
	Clicked
	ScrollBegan
	ScrollChanged
	ScrollEnded
	DragBegan
	DragChanged
	DragEnded
	Typed

	numKinds
)

var names = [numKinds]string{
	ViewerHandshake:       "viewerHandshake",
	HostHandshake:         "hostHandshake",
	Windows:               "windows",
	WindowPreview:         "windowPreview",
	StartCasting:          "startCasting",
	StopCasting:           "stopCasting",
	WindowFrame:           "windowFrame",
	WindowMask:            "windowMask",
	StartWatchingChildren: "startWatchingChildren",
	StopWatchingChildren:  "stopWatchingChildren",
	ChildWindows:          "childWindows",
	MouseMoved:            "mouseMoved",
	Clicked:               "clicked",
	ScrollBegan:           "scrollBegan",
	ScrollChanged:         "scrollChanged",
	ScrollEnded:           "scrollEnded",
	DragBegan:             "dragBegan",
	DragChanged:           "dragChanged",
	DragEnded:             "dragEnded",
	Typed:                 "typed",
}

// Valid reports whether kind belongs to the catalog.
func Valid(kind mux.Kind) bool {
	return kind < numKinds
}

// Name returns the catalog name of kind.
func Name(kind mux.Kind) string {
	if !Valid(kind) {
		return fmt.Sprintf("kind(%d)", uint8(kind))
	}
	return names[kind]
}

// Lookup returns the kind with the given catalog name.
func Lookup(name string) (mux.Kind, bool) {
	for k, n := range names {
		if n == name {
			return mux.Kind(k), true
		}
	}
	return 0, false
}
