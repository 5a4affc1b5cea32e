// Package devices provides compile-time-typed wrappers over the generic
// channel layer, one per supported device class.
//
// Each wrapper embeds *channel.Channel, so the full lifecycle surface (Open,
// WaitForAttachment, Close, OnAttach, ...) is available directly, while the
// class-specific methods pin each property to its correct Go type. The
// wrappers are deliberately mechanical: lifecycle, error translation and
// event bridging all live in the channel package.
package devices
