package service

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/slack-archv/internal/models"
	"github.com/noah-isme/slack-archv/internal/transform"
	"github.com/noah-isme/slack-archv/pkg/slack"
)

// ResolvedMessage is a history record with every embedded object already
// normalized. It is produced without touching storage.
type ResolvedMessage struct {
	Message    models.Message
	File       *models.File
	Comment    *models.FileComment
	Attachment *models.Attachment
	Reactions  []transform.ReactionSet
}

// ReferenceResolver turns history records into rows and persists the objects
// a message points at.
type ReferenceResolver struct {
	files     fileRepository
	reactions reactionRepository
	logger    *zap.Logger
}

// NewReferenceResolver constructs the resolver.
func NewReferenceResolver(files fileRepository, reactions reactionRepository, logger *zap.Logger) *ReferenceResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReferenceResolver{files: files, reactions: reactions, logger: logger}
}

// Resolve normalizes raw and its embedded file, comment, attachment and
// reactions. Any failure rejects the whole record.
func (r *ReferenceResolver) Resolve(raw slack.Record, channelID string) (*ResolvedMessage, error) {
	msg, err := transform.Message(raw, channelID)
	if err != nil {
		return nil, err
	}
	out := &ResolvedMessage{Message: msg}

	fileRaw, hasFile := raw.Map("file")
	if !hasFile {
		if files := raw.Records("files"); len(files) > 0 {
			fileRaw, hasFile = files[0], true
		}
	}
	fileID := ""
	if hasFile {
		file, err := transform.File(fileRaw)
		if err != nil {
			return nil, err
		}
		out.File = &file
		fileID = file.ID
		if fileRaw.Has("reactions") {
			if err := out.addReactions(fileRaw, models.Subject{Kind: models.SubjectFile, ID: file.ID}); err != nil {
				return nil, err
			}
		}
	}

	var commentRaw slack.Record
	switch {
	case msg.Subtype != nil && *msg.Subtype == models.SubtypeFileComment:
		commentRaw, _ = raw.Map("comment")
	case hasFile:
		commentRaw, _ = fileRaw.Map("initial_comment")
	}
	if commentRaw != nil {
		comment, err := transform.FileComment(commentRaw, fileID)
		if err != nil {
			return nil, err
		}
		out.Comment = &comment
		if commentRaw.Has("reactions") {
			if err := out.addReactions(commentRaw, models.Subject{Kind: models.SubjectFileComment, ID: comment.ID}); err != nil {
				return nil, err
			}
		}
	}

	if attachments := raw.Records("attachments"); len(attachments) > 0 {
		att, err := transform.Attachment(attachments[0])
		if err != nil {
			return nil, err
		}
		out.Attachment = &att
	}

	// Message reactions are always replaced so removed ones disappear on edit.
	subject := models.Subject{Kind: models.SubjectMessage, ID: msg.TS, ChannelID: channelID}
	if err := out.addReactions(raw, subject); err != nil {
		return nil, err
	}

	return out, nil
}

func (m *ResolvedMessage) addReactions(raw slack.Record, subject models.Subject) error {
	set, err := transform.Reactions(raw.Records("reactions"), subject)
	if err != nil {
		return err
	}
	m.Reactions = append(m.Reactions, set)
	return nil
}

// Persist writes the file, comment and attachment of resolved through exec
// and returns the message row pointing at them. The message itself is not
// written.
func (r *ReferenceResolver) Persist(ctx context.Context, exec sqlx.ExtContext, resolved *ResolvedMessage) (models.Message, error) {
	msg := resolved.Message

	if resolved.File != nil {
		if err := r.files.Upsert(ctx, exec, *resolved.File); err != nil {
			return models.Message{}, fmt.Errorf("persist file of %s: %w", msg.TS, err)
		}
		fileID := resolved.File.ID
		msg.FileID = &fileID
	}

	if resolved.Comment != nil {
		if err := r.files.UpsertComment(ctx, exec, *resolved.Comment); err != nil {
			return models.Message{}, fmt.Errorf("persist comment of %s: %w", msg.TS, err)
		}
	}

	if resolved.Attachment != nil {
		id, err := r.files.CreateAttachment(ctx, exec, *resolved.Attachment)
		if err != nil {
			return models.Message{}, fmt.Errorf("persist attachment of %s: %w", msg.TS, err)
		}
		msg.AttachmentID = &id
	}

	return msg, nil
}

// PersistReactions replaces the reactions of every subject in resolved and
// returns how many reactions were reported with fewer users than their count.
func (r *ReferenceResolver) PersistReactions(ctx context.Context, exec sqlx.ExtContext, resolved *ResolvedMessage) (int, error) {
	incomplete := 0
	for _, set := range resolved.Reactions {
		if _, err := r.reactions.Replace(ctx, exec, set.Subject, set.Rows); err != nil {
			return incomplete, fmt.Errorf("persist reactions of %s %s: %w", set.Subject.Kind, set.Subject.ID, err)
		}
		for _, name := range set.Incomplete {
			r.logger.Warn("reaction user list incomplete",
				zap.String("subject_type", string(set.Subject.Kind)),
				zap.String("subject_id", set.Subject.ID),
				zap.String("channel_id", set.Subject.ChannelID),
				zap.String("reaction", name))
			incomplete++
		}
	}
	return incomplete, nil
}
