package orchestra

// EventKind discriminates the channel-voice messages the engine handles.
type EventKind uint8

const (
	NoteOn EventKind = iota
	NoteOff
)

// Event is one incoming MIDI channel-voice message. Channel is 1-based as on
// the wire (1..16).
type Event struct {
	Kind     EventKind
	Channel  int
	Note     int
	Velocity int
}

// sectionSink receives routed events for one section.
type sectionSink interface {
	handleNoteOn(note, velocity int)
	handleNoteOff(note int)
}

// router dispatches events to the five sections by channel: channel 1 is
// Strings through channel 5 Choir. Events on any other channel are dropped
// without error. Dispatch preserves input order and always consumes the whole
// slice.
type router struct {
	sections [NumSections]sectionSink
}

func (r *router) route(events []Event) {
	for _, ev := range events {
		idx := ev.Channel - 1
		if idx < 0 || idx >= NumSections {
			continue
		}
		s := r.sections[idx]
		if s == nil {
			continue
		}
		switch ev.Kind {
		case NoteOn:
			if ev.Velocity <= 0 {
				// Running-status convention: velocity-0 note-on is a note-off.
				s.handleNoteOff(ev.Note)
				continue
			}
			s.handleNoteOn(ev.Note, ev.Velocity)
		case NoteOff:
			s.handleNoteOff(ev.Note)
		}
	}
}
