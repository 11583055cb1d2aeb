// Package media tracks what the connected phone is playing and sends it
// remote control keys.
package media

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/retrofit-labs/carcomms"
	"github.com/retrofit-labs/carcomms/message"
)

// Session caches the metadata of the current track. The zero value is an
// empty session.
type Session struct {
	mu sync.Mutex

	title      string
	artist     string
	album      string
	duration   time.Duration
	position   time.Duration
	status     carcomms.PlayStatus
	sourceName string

	remoteConnected bool
	label           uint8

	onChange func(message.TrackInfo)
}

func NewSession() *Session {
	return &Session{}
}

// SetChangeHandler installs f, called after the track info changes.
func (s *Session) SetChangeHandler(f func(message.TrackInfo)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = f
}

// Clear forgets the track and source name.
func (s *Session) Clear() {
	s.update(func() {
		s.title, s.artist, s.album = "", "", ""
		s.duration = 0
		s.position = 0
		s.sourceName = ""
	})
}

// ApplyAttribute stores one metadata attribute reported by the device.
// Playing time is a decimal millisecond count; anything unparsable reads as 0.
func (s *Session) ApplyAttribute(attr carcomms.MediaAttr, text string) {
	s.update(func() {
		switch attr {
		case carcomms.AttrTitle:
			s.title = text
		case carcomms.AttrArtist:
			s.artist = text
		case carcomms.AttrAlbum:
			s.album = text
		case carcomms.AttrPlayingTime:
			ms, err := strconv.Atoi(strings.TrimSpace(text))
			if err != nil || ms < 0 {
				ms = 0
			}
			s.duration = time.Duration(ms) * time.Millisecond
		}
	})
}

func (s *Session) SetPosition(d time.Duration) {
	s.update(func() { s.position = d })
}

func (s *Session) SetStatus(st carcomms.PlayStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = st
}

func (s *Session) Status() carcomms.PlayStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *Session) SetSourceName(n string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sourceName = n
}

func (s *Session) SourceName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sourceName
}

// SetRemoteConnected records whether the remote control channel is up.
func (s *Session) SetRemoteConnected(c bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.remoteConnected = c
}

func (s *Session) RemoteConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remoteConnected
}

// NextLabel advances and returns the transaction label, cycling 0..15.
func (s *Session) NextLabel() uint8 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.label = (s.label + 1) % 16
	return s.label
}

// TrackInfo returns the cached track as a broadcastable message.
func (s *Session) TrackInfo() message.TrackInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.trackInfoLocked()
}

func (s *Session) trackInfoLocked() message.TrackInfo {
	return message.TrackInfo{
		Title:    s.title,
		Artist:   s.artist,
		Album:    s.album,
		Length:   s.duration,
		Position: s.position,
	}
}

func (s *Session) update(f func()) {
	s.mu.Lock()
	before := s.trackInfoLocked()
	f()
	after := s.trackInfoLocked()
	onChange := s.onChange
	s.mu.Unlock()

	if onChange != nil && before != after {
		onChange(after)
	}
}
