package persist

import "github.com/pixian5/homepage-sub000/internal/models"

// Step names a degradation applied to fit the Local quota.
type Step string

const (
	StepClearBackups           Step = "clear-backups"
	StepRevertUploadedIcons    Step = "revert-uploaded-icons"
	StepDropUploadedBackground Step = "drop-uploaded-background"
)

type degradationStep struct {
	name  Step
	apply func(*models.Document) bool
}

// degradation is applied in this order only.
var degradation = []degradationStep{
	{StepClearBackups, clearBackups},
	{StepRevertUploadedIcons, func(d *models.Document) bool { return revertUploadedIcons(d, 0) }},
	{StepDropUploadedBackground, dropUploadedBackground},
}

func clearBackups(d *models.Document) bool {
	if len(d.Backups) == 0 {
		return false
	}
	d.Backups = []models.Backup{}
	return true
}

// revertUploadedIcons turns uploaded icons larger than limit bytes back
// into auto icons. A zero limit reverts them all.
func revertUploadedIcons(d *models.Document, limit int) bool {
	changed := false
	for id, n := range d.Nodes {
		if n.IconType != models.IconUpload {
			continue
		}
		if limit > 0 && len(n.IconData) <= limit {
			continue
		}
		n.IconType = models.IconAuto
		n.IconData = ""
		d.Nodes[id] = n
		changed = true
	}
	return changed
}

func dropUploadedBackground(d *models.Document) bool {
	if d.Settings.BackgroundType != models.BackgroundUpload {
		return false
	}
	d.Settings.BackgroundType = models.BackgroundColor
	d.Settings.BackgroundImage = ""
	return true
}

// SyncPayload is the copy of d written to the Synced tier: no backups, no
// uploaded background, and no uploaded icon over iconMax bytes.
func SyncPayload(d *models.Document, iconMax int) *models.Document {
	c := d.Clone()
	c.Backups = []models.Backup{}
	dropUploadedBackground(c)
	revertUploadedIcons(c, max(iconMax, 1))
	return c
}
