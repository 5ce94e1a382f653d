package loom

import (
	"honnef.co/go/loom/clip"
	"honnef.co/go/loom/displaylist"
	"honnef.co/go/loom/gfx"
	"honnef.co/go/loom/lmath"
	"honnef.co/go/loom/spatial"
)

// pendingShadow is one shadow marker in the deferral queue.
type pendingShadow struct {
	shadow        gfx.Shadow
	shouldInflate bool
	spatial       spatial.NodeIndex
	clipChain     clip.ChainID
}

// pendingPrimitive is a buffered primitive whose final target is unknown
// until the whole shadow region has been consumed.
type pendingPrimitive struct {
	payload   primPayload
	rect      lmath.Rect
	clipRect  lmath.Rect
	spatial   spatial.NodeIndex
	clipChain clip.ChainID
	flags     displaylist.PrimitiveFlags
}

// pendingItem is either a shadow marker or a buffered primitive.
type pendingItem struct {
	shadow *pendingShadow
	prim   *pendingPrimitive
}

func (sb *SceneBuilder) pushShadow(item displaylist.PushShadow) {
	info, _ := sb.processCommon(item.Common, nil)
	sb.pendingShadows = append(sb.pendingShadows, pendingItem{
		shadow: &pendingShadow{
			shadow:        item.Shadow,
			shouldInflate: item.ShouldInflate != 0,
			spatial:       info.spatial,
			clipChain:     info.clipChain,
		},
	})
}

// popAllShadows drains the deferral queue. Each shadow marker builds one
// blurred picture containing recolored clones of every primitive buffered
// after it; multiple stacked shadows each clone the same primitive set. The
// originals are then drawn once, after all shadows, matching CSS multi-shadow
// paint order.
func (sb *SceneBuilder) popAllShadows() {
	items := sb.pendingShadows
	sb.pendingShadows = nil

	for i, it := range items {
		if it.shadow == nil {
			continue
		}
		sh := it.shadow
		var list PrimitiveList
		for _, later := range items[i+1:] {
			if later.prim == nil {
				continue
			}
			p := later.prim
			snapper := sb.snapperFor(p.spatial)
			rect := snapper.SnapRect(p.rect.Translate(sh.shadow.Offset))
			clipRect := snapper.SnapRect(p.clipRect.Translate(sh.shadow.Offset))
			kind, idx := p.payload.createShadow(sh.shadow).intern(sb.interners)
			list.Add(PrimitiveInstance{
				Kind:          kind,
				DataIndex:     idx,
				LocalRect:     rect,
				LocalClipRect: clipRect,
				Spatial:       p.spatial,
				ClipChain:     p.clipChain,
				Flags:         p.flags,
			}, p.flags)
		}
		if list.IsEmpty() {
			// A shadow with nothing to cast allocates no picture.
			continue
		}
		blur := float32(0)
		if sh.shouldInflate {
			blur = sh.shadow.BlurRadius * 0.5
		}
		inst := sb.realizePicture(Picture{
			Composite:   CompositeFilter{Filter: gfx.Blur(blur, blur)},
			RasterSpace: sb.currentFrame().rasterSpace,
			Spatial:     sh.spatial,
			Prims:       list,
		}, sh.clipChain)
		sb.currentFrame().primList.Add(inst, inst.Flags)
	}

	for _, it := range items {
		if it.prim == nil {
			continue
		}
		p := it.prim
		sb.addPaintPrimitive(primInfo{
			spatial:   p.spatial,
			clipChain: p.clipChain,
			clipRect:  p.clipRect,
			flags:     p.flags,
		}, p.rect, p.payload)
	}
}
