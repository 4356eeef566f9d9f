//go:build darwin

package input

/*
#cgo LDFLAGS: -framework CoreGraphics -framework CoreFoundation -framework ApplicationServices

#include <CoreGraphics/CoreGraphics.h>
#include <CoreFoundation/CoreFoundation.h>
#include <ApplicationServices/ApplicationServices.h>

static bool hasAccessibilityPermissions() {
    return AXIsProcessTrusted();
}

// Moves relative to the current location and sets the delta fields so
// applications reading raw deltas see the motion too.
static void injectMouseMove(int32_t dx, int32_t dy) {
    CGEventRef ev = CGEventCreate(NULL);
    CGPoint cur = CGEventGetLocation(ev);
    CFRelease(ev);

    CGPoint next = CGPointMake(cur.x + dx, cur.y + dy);
    CGEventRef event = CGEventCreateMouseEvent(NULL, kCGEventMouseMoved, next, kCGMouseButtonLeft);
    CGEventSetIntegerValueField(event, kCGMouseEventDeltaX, dx);
    CGEventSetIntegerValueField(event, kCGMouseEventDeltaY, dy);
    CGEventPost(kCGHIDEventTap, event);
    CFRelease(event);
}

// CGEventCreateScrollWheelEvent is variadic and cannot be called from Go.
// wheel2 is positive to the left, matching the sink convention.
static void injectScroll(int32_t dx, int32_t dy) {
    CGEventRef event = CGEventCreateScrollWheelEvent(NULL, kCGScrollEventUnitPixel, 2, dy, dx);
    CGEventPost(kCGHIDEventTap, event);
    CFRelease(event);
}
*/
import "C"

import (
	"github.com/rs/zerolog"
)

// pixelsPerNotch approximates one wheel detent in pixel scroll units.
const pixelsPerNotch = 10

type coreGraphics struct{}

func newBackend(logger *zerolog.Logger) (backend, error) {
	if !bool(C.hasAccessibilityPermissions()) {
		logger.Warn().Msg("accessibility permission missing; pointer events will be ignored until it is granted in System Settings")
	}
	return coreGraphics{}, nil
}

func (coreGraphics) name() string           { return "coregraphics" }
func (coreGraphics) unitsPerNotch() float64 { return pixelsPerNotch }

func (coreGraphics) moveBy(dx, dy int32) error {
	C.injectMouseMove(C.int32_t(dx), C.int32_t(dy))
	return nil
}

func (coreGraphics) scrollBy(dx, dy int32) error {
	C.injectScroll(C.int32_t(dx), C.int32_t(dy))
	return nil
}

func (coreGraphics) close() error { return nil }
