package domain

// ModeTemplates holds one filename template per download mode.
type ModeTemplates struct {
	Video string `json:"video"`
	Audio string `json:"audio"`
}

// NamingTemplates is the persisted set of filename templates, one per
// (contentType, mode) pair.
type NamingTemplates struct {
	Single   ModeTemplates `json:"single"`
	Playlist ModeTemplates `json:"playlist"`
}

// DefaultNamingTemplates returns the factory template set.
func DefaultNamingTemplates() NamingTemplates {
	return NamingTemplates{
		Single: ModeTemplates{
			Video: "<title> - <quality>",
			Audio: "<title>",
		},
		Playlist: ModeTemplates{
			Video: "<index> - <title> - <quality>",
			Audio: "<index> - <title>",
		},
	}
}

// For selects the template for a (contentType, mode) pair.
func (t NamingTemplates) For(ct ContentType, mode DownloadMode) string {
	mt := t.Single
	if ct == ContentPlaylist {
		mt = t.Playlist
	}
	if mode == ModeAudio {
		return mt.Audio
	}
	return mt.Video
}

// Merge fills empty slots from the defaults, so a partially populated
// settings file never produces empty templates.
func (t NamingTemplates) Merge(defaults NamingTemplates) NamingTemplates {
	out := t
	if out.Single.Video == "" {
		out.Single.Video = defaults.Single.Video
	}
	if out.Single.Audio == "" {
		out.Single.Audio = defaults.Single.Audio
	}
	if out.Playlist.Video == "" {
		out.Playlist.Video = defaults.Playlist.Video
	}
	if out.Playlist.Audio == "" {
		out.Playlist.Audio = defaults.Playlist.Audio
	}
	return out
}
