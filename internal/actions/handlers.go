package actions

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/user/sitewatch/internal/domain"
	"github.com/user/sitewatch/internal/render"
)

func (b *Binder) toggle(ctx context.Context, c domain.TogglePublish) (domain.CommandResult, error) {
	resp, err := b.deps.Sites.ToggleVisibility(ctx, c.SiteID)
	if err != nil {
		b.revertSwitch(c)
		b.deps.Notifier.Danger(ctx, "Error", "Failed to toggle publish status", c.SiteID)
		return domain.CommandResult{}, err
	}
	if !resp.Success {
		b.revertSwitch(c)
		b.deps.Notifier.Danger(ctx, "Error", resp.Msg, c.SiteID)
		return domain.CommandResult{Message: resp.Msg}, fmt.Errorf("%w: %s", ErrRejected, resp.Msg)
	}

	if err := b.deps.Table.SetPublished(c.SiteID, resp.IsPublished); err != nil {
		b.logger.Warn("failed to update publish switch", zap.String("site_id", c.SiteID), zap.Error(err))
	}
	b.refresh(c.SiteID)
	b.deps.Notifier.Success(ctx, "Success", resp.Msg, c.SiteID)
	published := resp.IsPublished
	return domain.CommandResult{Message: resp.Msg, IsPublished: &published}, nil
}

// revertSwitch puts the switch back to the state it had before the user flipped it.
func (b *Binder) revertSwitch(c domain.TogglePublish) {
	if err := b.deps.Table.SetPublished(c.SiteID, !c.Checked); err != nil {
		b.logger.Warn("failed to revert publish switch", zap.String("site_id", c.SiteID), zap.Error(err))
	}
	b.refresh(c.SiteID)
}

func (b *Binder) rename(ctx context.Context, c domain.Rename) (domain.CommandResult, error) {
	name := strings.TrimSpace(c.Name)
	if name == "" {
		return domain.CommandResult{}, fmt.Errorf("%w: new name is empty", ErrInvalidCommand)
	}

	resp, err := b.deps.Sites.RenameSite(ctx, c.SiteID, name)
	if err != nil {
		b.deps.Notifier.Danger(ctx, "Error", "Failed to rename site", c.SiteID)
		return domain.CommandResult{}, err
	}
	if !resp.Success {
		b.deps.Notifier.Danger(ctx, "Error", resp.Msg, c.SiteID)
		return domain.CommandResult{Message: resp.Msg}, fmt.Errorf("%w: %s", ErrRejected, resp.Msg)
	}

	if resp.NewName != "" {
		name = resp.NewName
	}
	if err := b.deps.Table.SetName(c.SiteID, name); err != nil {
		b.logger.Warn("failed to update row name", zap.String("site_id", c.SiteID), zap.Error(err))
	}
	b.refresh(c.SiteID)
	b.deps.Notifier.Success(ctx, "Success", resp.Msg, c.SiteID)
	return domain.CommandResult{Message: resp.Msg, Name: name}, nil
}

func (b *Binder) delete(ctx context.Context, c domain.Delete, ctrl render.Control) (domain.CommandResult, error) {
	resp, err := b.deps.Sites.DeleteSite(ctx, c.SiteID)
	if err != nil {
		b.deps.Notifier.Danger(ctx, "Error", "Failed to delete site", c.SiteID)
		return domain.CommandResult{}, err
	}
	if !resp.Success {
		b.deps.Notifier.Danger(ctx, "Error", resp.Msg, c.SiteID)
		return domain.CommandResult{Message: resp.Msg}, fmt.Errorf("%w: %s", ErrRejected, resp.Msg)
	}

	if b.deps.Tracker != nil {
		b.deps.Tracker.Untrack(c.SiteID)
	}
	if err := b.deps.Table.RemoveRow(c.SiteID); err != nil {
		b.logger.Warn("failed to remove row", zap.String("site_id", c.SiteID), zap.Error(err))
	}
	b.Unbind(c.SiteID)

	name := c.Name
	if name == "" {
		name = ctrl.Name
	}
	b.deps.Notifier.Success(ctx, "Success", resp.Msg, c.SiteID)
	return domain.CommandResult{Message: resp.Msg, Name: name}, nil
}

func (b *Binder) preview(ctx context.Context, c domain.Preview, ctrl render.Control) (domain.CommandResult, error) {
	url := c.URL
	if url == "" {
		url = ctrl.URL
	}
	capture, err := b.deps.Previewer.Capture(ctx, url)
	if err != nil {
		return domain.CommandResult{}, err
	}
	return domain.CommandResult{
		PreviewURL: capture.URL,
		Title:      capture.Title,
		Screenshot: capture.Screenshot,
	}, nil
}

// refresh rebinds a row after its controls changed.
func (b *Binder) refresh(siteID string) {
	if err := b.Bind(siteID); err != nil {
		b.logger.Debug("rebind failed", zap.String("site_id", siteID), zap.Error(err))
	}
}
