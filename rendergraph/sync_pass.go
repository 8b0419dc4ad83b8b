package rendergraph

import vk "github.com/goki/vulkan"

// imageBarrierSpec and bufferBarrierSpec are the compiler's internal
// barrier descriptions, resolved against realized gpu.Image/gpu.Buffer
// handles by the recorder (C8). A spec names only the attachment, never a
// real vk handle; the recorder looks up the realized resource when it
// records the barrier.
type imageBarrierSpec struct {
	attachment     *Attachment
	oldLayout      vk.ImageLayout
	newLayout      vk.ImageLayout
	srcAccess      vk.AccessFlags
	dstAccess      vk.AccessFlags
	srcQueueFamily uint32
	dstQueueFamily uint32
	baseLayer      uint32
	layerCount     uint32
}

type bufferBarrierSpec struct {
	attachment     *Attachment
	srcAccess      vk.AccessFlags
	dstAccess      vk.AccessFlags
	srcQueueFamily uint32
	dstQueueFamily uint32
	offset         uint64
	size           uint64
}

// newSyncPass builds a compiler-synthesized synchronization pass. SyncPass
// is never constructed by graph users; the synchronizer (C7) inserts it
// between a releasing pass and the following acquiring pass (spec §4.7).
func newSyncPass(name string) *Pass {
	return newPass(name, PassSync)
}

func (p *Pass) addImageBarrier(b imageBarrierSpec) {
	p.imageBarriers = append(p.imageBarriers, b)
}

func (p *Pass) addBufferBarrier(b bufferBarrierSpec) {
	p.bufferBarriers = append(p.bufferBarriers, b)
}
