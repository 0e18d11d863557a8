package gapi

type imgState struct {
	img      Attach
	id       uint64
	last     TextureLayout
	next     TextureLayout
	outdated bool
}

type bufState struct {
	buf      Buffer
	last     BufferLayout
	next     BufferLayout
	outdated bool
}

// ResourceState tracks the layouts of the resources used by one command
// buffer and emits the transitions needed between uses. The set of live
// resources per command buffer is small, so lookups scan linearly.
//
// ResourceState is not safe for concurrent use.
type ResourceState struct {
	img []imgState
	buf []bufState
}

// SetLayout requests img to be in lay at the next flush. A new entry starts
// from the image's default layout when preserve is set, otherwise from
// Undefined and the contents are discarded.
func (s *ResourceState) SetLayout(img Attach, lay TextureLayout, preserve bool) {
	st := s.findImg(img, preserve)
	st.next = lay
	st.outdated = true
}

// SetBufferLayout requests buf to be in lay at the next flush.
func (s *ResourceState) SetBufferLayout(buf Buffer, lay BufferLayout) {
	st := s.findBuf(buf)
	st.next = lay
	st.outdated = true
}

// FlushLayout emits one transition per outdated resource.
func (s *ResourceState) FlushLayout(cmd LayoutRecorder) {
	for i := range s.img {
		st := &s.img[i]
		if !st.outdated {
			continue
		}
		cmd.ChangeImageLayout(st.img, st.last, st.next, st.last == st.next)
		st.last = st.next
		st.outdated = false
	}
	for i := range s.buf {
		st := &s.buf[i]
		if !st.outdated {
			continue
		}
		cmd.ChangeBufferLayout(st.buf, st.last, st.next, st.last == st.next)
		st.last = st.next
		st.outdated = false
	}
}

// Finalize flushes and forgets every image. Buffer entries are kept.
func (s *ResourceState) Finalize(cmd LayoutRecorder) {
	if len(s.img) == 0 {
		return
	}
	s.FlushLayout(cmd)
	s.img = s.img[:0]
}

// Len reports the number of tracked images and buffers.
func (s *ResourceState) Len() (images, buffers int) {
	return len(s.img), len(s.buf)
}

func (s *ResourceState) findImg(img Attach, preserve bool) *imgState {
	id := img.NativeHandle()
	for i := range s.img {
		if s.img[i].id == id {
			return &s.img[i]
		}
	}
	st := imgState{img: img, id: id, last: Undefined}
	if preserve {
		st.last = img.DefaultLayout()
	}
	st.next = st.last
	s.img = append(s.img, st)
	return &s.img[len(s.img)-1]
}

func (s *ResourceState) findBuf(buf Buffer) *bufState {
	for i := range s.buf {
		if s.buf[i].buf == buf {
			return &s.buf[i]
		}
	}
	s.buf = append(s.buf, bufState{buf: buf, last: BufferComputeRead, next: BufferComputeRead})
	return &s.buf[len(s.buf)-1]
}
