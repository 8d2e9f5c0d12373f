package socialshare

import (
	"fmt"
)

// PreviewState is the page state while a user works on one image.
type PreviewState string

const (
	PreviewIdle         PreviewState = "idle"
	PreviewUploading    PreviewState = "uploading"
	PreviewReady        PreviewState = "ready"
	PreviewTransforming PreviewState = "transforming"
)

// PreviewSession tracks one page visit: the selected preset, the uploaded
// asset, and whether an upload or a rendition is in flight. A preset is
// always selected and transforming implies an asset id.
type PreviewSession struct {
	catalog *PresetCatalog
	state   PreviewState
	assetID string
	preset  Preset
	// state to go back to when an upload fails
	beforeUpload PreviewState
}

func NewPreviewSession(catalog *PresetCatalog) *PreviewSession {
	if catalog == nil {
		catalog = MustDefaultCatalog()
	}

	return &PreviewSession{
		catalog: catalog,
		state:   PreviewIdle,
		preset:  catalog.Default(),
	}
}

func (s *PreviewSession) State() PreviewState { return s.state }
func (s *PreviewSession) AssetID() string     { return s.assetID }
func (s *PreviewSession) Preset() Preset      { return s.preset }
func (s *PreviewSession) Uploading() bool     { return s.state == PreviewUploading }
func (s *PreviewSession) Transforming() bool  { return s.state == PreviewTransforming }

// StartUpload is called when the user picks a file.
func (s *PreviewSession) StartUpload() error {
	if s.state == PreviewUploading {
		return ErrUploadInProgress
	}

	// an in-flight rendition is abandoned, a failed upload requests it again
	s.beforeUpload = s.state
	s.state = PreviewUploading
	return nil
}

// UploadSucceeded stores the new asset id. A new asset always needs a
// rendition, so the session moves straight to transforming. An empty id is
// a failed upload: the session is restored as by UploadFailed and
// ErrEmptyPublicID is returned.
func (s *PreviewSession) UploadSucceeded(publicID string) error {
	if s.state != PreviewUploading {
		return fmt.Errorf("preview session: no upload in progress (state %s)", s.state)
	}

	if publicID == "" {
		if _, err := s.UploadFailed(); err != nil {
			return err
		}
		return ErrEmptyPublicID
	}

	s.assetID = publicID
	s.state = PreviewTransforming
	return nil
}

// UploadFailed restores the state from before the upload started. rerender
// is true when that state is transforming: the rendition for the kept asset
// has to be requested again.
func (s *PreviewSession) UploadFailed() (rerender bool, err error) {
	if s.state != PreviewUploading {
		return false, fmt.Errorf("preview session: no upload in progress (state %s)", s.state)
	}

	s.state = s.beforeUpload
	if s.assetID == "" {
		s.state = PreviewIdle
	}
	return s.state == PreviewTransforming, nil
}

// SelectPreset switches the preset. With an asset loaded this starts a
// new rendition.
func (s *PreviewSession) SelectPreset(name string) error {
	preset, ok := s.catalog.Lookup(name)
	if !ok {
		return UnknownFormatError(name)
	}

	s.preset = preset
	if s.assetID == "" {
		return nil
	}

	if s.state == PreviewUploading {
		// the old asset needs the new preset if the upload fails
		s.beforeUpload = PreviewTransforming
		return nil
	}

	s.state = PreviewTransforming
	return nil
}

// RenderComplete is the load signal from the renderer. It reports whether
// the signal ended a transformation; signals in any other state are ignored.
func (s *PreviewSession) RenderComplete() bool {
	if s.state != PreviewTransforming {
		return false
	}
	s.state = PreviewReady
	return true
}

// Restore resumes a session for an asset uploaded earlier, e.g. after a
// page reload.
func (s *PreviewSession) Restore(publicID, presetName string) error {
	if presetName != "" {
		preset, ok := s.catalog.Lookup(presetName)
		if !ok {
			return UnknownFormatError(presetName)
		}
		s.preset = preset
	}

	if publicID == "" {
		return nil
	}

	s.assetID = publicID
	s.state = PreviewTransforming
	return nil
}

// Transformation is the rendition the renderer should show right now.
func (s *PreviewSession) Transformation() (Transformation, bool) {
	if s.assetID == "" {
		return Transformation{}, false
	}
	return s.preset.Transformation(), true
}
