package workspace

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pdiddy/signage-workspace/pkg/types"
)

// selectedTeamFile holds the team shown on the display, under the state dir.
const selectedTeamFile = "signage-team.json"

type selectedTeam struct {
	Team *string `json:"team"`
}

// SelectedTeam returns the team chosen for display, or "" when none is set
// or the state file is unreadable.
func (w *Workspace) SelectedTeam() string {
	data, err := os.ReadFile(filepath.Join(w.stateDir, selectedTeamFile))
	if err != nil {
		return ""
	}
	var st selectedTeam
	if err := json.Unmarshal(data, &st); err != nil || st.Team == nil {
		return ""
	}
	return *st.Team
}

// SetSelectedTeam records team as the display team. An empty team clears
// the selection; any other team must exist.
func (w *Workspace) SetSelectedTeam(team string) error {
	var st selectedTeam
	if team != "" {
		if _, err := w.ExistingTeamDir(team); err != nil {
			return err
		}
		st.Team = &team
	}
	if err := os.MkdirAll(w.stateDir, 0o755); err != nil {
		return fmt.Errorf("creating state dir: %w", err)
	}
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	if err := writeFileAtomic(filepath.Join(w.stateDir, selectedTeamFile), append(data, '\n')); err != nil {
		return fmt.Errorf("saving selected team: %w", err)
	}
	return nil
}

// ErrNoTeamSelected is returned when the display has no team yet.
var ErrNoTeamSelected = errors.New("no team selected")

// DisplayPlaylist returns the selected team and its playlist with sources
// resolved under baseURL.
func (w *Workspace) DisplayPlaylist(baseURL string) (string, types.Playlist, error) {
	team := w.SelectedTeam()
	if team == "" {
		return "", types.Playlist{}, ErrNoTeamSelected
	}
	pl, err := w.ReadPlaylist(team)
	if err != nil {
		return team, types.Playlist{}, err
	}
	return team, ResolveSources(pl, baseURL), nil
}
