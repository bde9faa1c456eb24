package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"Ewm_Platform/internal/model"
	"Ewm_Platform/internal/pkg"
	"Ewm_Platform/internal/repository/mysql"

	"gorm.io/gorm"
)

const DefaultLeadTime = 2 * time.Hour

// 发起人与管理员可用的状态动作
const (
	ActionSendToReview = "SEND_TO_REVIEW"
	ActionCancelReview = "CANCEL_REVIEW"
	ActionPublish      = "PUBLISH_EVENT"
	ActionReject       = "REJECT_EVENT"
)

const (
	SortEventDate = "EVENT_DATE"
	SortViews     = "VIEWS"
)

const (
	defaultRejectText   = "rejected by moderator"
	defaultResubmitText = "resubmitted for review"
)

type NewEventInput struct {
	Title             string
	Annotation        string
	Description       string
	CategoryID        uint64
	EventDate         time.Time
	Location          Location
	Paid              bool
	ParticipantLimit  int64
	RequestModeration bool
}

// UpdateEventInput nil 字段表示不修改
type UpdateEventInput struct {
	Title             *string
	Annotation        *string
	Description       *string
	CategoryID        *uint64
	EventDate         *time.Time
	Location          *Location
	Paid              *bool
	ParticipantLimit  *int64
	RequestModeration *bool
	StateAction       string
	Comment           string
}

func (in *UpdateEventInput) hasEdits() bool {
	return in.Title != nil || in.Annotation != nil || in.Description != nil || in.CategoryID != nil ||
		in.EventDate != nil || in.Location != nil || in.Paid != nil || in.ParticipantLimit != nil ||
		in.RequestModeration != nil
}

type PublicSearch struct {
	Text          string
	Categories    []uint64
	Paid          *bool
	RangeStart    *time.Time
	RangeEnd      *time.Time
	OnlyAvailable bool
	Sort          string
	From          int
	Size          int
}

type AdminSearch struct {
	Users      []uint64
	States     []string
	Categories []uint64
	RangeStart *time.Time
	RangeEnd   *time.Time
	From       int
	Size       int
}

// EventService 活动生命周期：创建、编辑、审核、发布、取消
type EventService struct {
	events   *mysql.EventRepository
	comments *mysql.CommentRepository
	users    *mysql.UserRepository
	builder  *ProjectionBuilder
	leadTime time.Duration
	now      func() time.Time
}

func NewEventService(db *gorm.DB, views ViewCounter, leadTime time.Duration) *EventService {
	cats := &mysql.CategoryRepository{DB: db}
	users := &mysql.UserRepository{DB: db}
	comments := &mysql.CommentRepository{DB: db}
	return &EventService{
		events:   &mysql.EventRepository{DB: db},
		comments: comments,
		users:    users,
		builder:  NewProjectionBuilder(cats, users, comments, views),
		leadTime: leadTime,
		now:      time.Now,
	}
}

func (s *EventService) Builder() *ProjectionBuilder {
	return s.builder
}

// Create 发起人提交活动，初始状态 PENDING
func (s *EventService) Create(ctx context.Context, userID uint64, in NewEventInput) (Projection, error) {
	if in.ParticipantLimit < 0 {
		return Projection{}, fmt.Errorf("%w: participantLimit must not be negative", pkg.ErrInvalidRequest)
	}
	now := s.now()
	if err := s.checkLeadTime(in.EventDate, now); err != nil {
		return Projection{}, err
	}

	ev := &model.Event{
		Title:             in.Title,
		Annotation:        in.Annotation,
		Description:       in.Description,
		CategoryID:        in.CategoryID,
		InitiatorID:       userID,
		Lat:               in.Location.Lat,
		Lon:               in.Location.Lon,
		EventDate:         in.EventDate,
		CreatedOn:         now,
		Paid:              in.Paid,
		ParticipantLimit:  in.ParticipantLimit,
		RequestModeration: in.RequestModeration,
		State:             model.EventPending,
	}
	// 发起人和分类加共享锁，防止与删除并发
	err := s.events.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := (&mysql.UserRepository{DB: tx}).Lock(ctx, userID, mysql.LockShare); err != nil {
			return err
		}
		if _, err := (&mysql.CategoryRepository{DB: tx}).Lock(ctx, in.CategoryID, mysql.LockShare); err != nil {
			return err
		}
		return (&mysql.EventRepository{DB: tx}).Create(ctx, ev)
	})
	if err != nil {
		return Projection{}, err
	}
	pkg.EventTransitions.WithLabelValues(string(ev.State)).Inc()
	return s.builder.BuildOne(ctx, ev, ShapeFull, ViewWindow{})
}

func (s *EventService) ListByInitiator(ctx context.Context, userID uint64, from, size int) ([]Projection, error) {
	if _, err := s.users.FindByID(ctx, userID); err != nil {
		return nil, err
	}
	from, size = page(from, size)
	list, err := s.events.ListByInitiator(ctx, userID, from, size)
	if err != nil {
		return nil, err
	}
	return s.builder.Build(ctx, list, ShapeShort, ViewWindow{})
}

func (s *EventService) GetByInitiator(ctx context.Context, userID, eventID uint64) (Projection, error) {
	ev, err := s.events.FindByID(ctx, eventID)
	if err != nil {
		return Projection{}, err
	}
	if ev.InitiatorID != userID {
		return Projection{}, fmt.Errorf("%w: event id=%d does not belong to user id=%d", pkg.ErrNoAccessRights, eventID, userID)
	}
	return s.builder.BuildOne(ctx, ev, ShapeFull, ViewWindow{})
}

// UpdateByInitiator 发起人编辑或改变状态；先执行状态动作，再应用字段修改
func (s *EventService) UpdateByInitiator(ctx context.Context, userID, eventID uint64, in UpdateEventInput) (Projection, error) {
	now := s.now()
	ev, err := s.events.Transition(ctx, eventID, func(tx *gorm.DB, ev *model.Event) error {
		if ev.InitiatorID != userID {
			return fmt.Errorf("%w: event id=%d does not belong to user id=%d", pkg.ErrNoAccessRights, eventID, userID)
		}
		comments := s.comments.WithTx(tx)
		switch in.StateAction {
		case "":
		case ActionSendToReview:
			switch ev.State {
			case model.EventPending, model.EventReModeration:
				// 已在审核中，重复提交视为无操作
			case model.EventRejected:
				if _, err := comments.Replace(ev.ID, textOr(in.Comment, defaultResubmitText), now); err != nil {
					return err
				}
				ev.State = model.EventReModeration
			default:
				return illegalTransition(ev, in.StateAction)
			}
		case ActionCancelReview:
			if ev.State != model.EventPending && ev.State != model.EventReModeration {
				return illegalTransition(ev, in.StateAction)
			}
			if in.Comment != "" {
				if _, err := comments.Replace(ev.ID, in.Comment, now); err != nil {
					return err
				}
			}
			ev.State = model.EventCanceled
		default:
			return fmt.Errorf("%w: unknown stateAction %q", pkg.ErrInvalidRequest, in.StateAction)
		}
		return s.applyEdits(ctx, tx, ev, &in, now)
	})
	if err != nil {
		return Projection{}, err
	}
	if in.StateAction != "" {
		pkg.EventTransitions.WithLabelValues(string(ev.State)).Inc()
	}
	return s.builder.BuildOne(ctx, ev, ShapeFull, ViewWindow{})
}

// Cancel 发起人取消活动；已发布活动可以附带取消原因
func (s *EventService) Cancel(ctx context.Context, userID, eventID uint64, reason string) (Projection, error) {
	now := s.now()
	ev, err := s.events.Transition(ctx, eventID, func(tx *gorm.DB, ev *model.Event) error {
		if ev.InitiatorID != userID {
			return fmt.Errorf("%w: event id=%d does not belong to user id=%d", pkg.ErrNoAccessRights, eventID, userID)
		}
		switch ev.State {
		case model.EventPending, model.EventReModeration, model.EventPublished:
		default:
			return illegalTransition(ev, "cancel")
		}
		if reason = strings.TrimSpace(reason); reason != "" {
			if _, err := s.comments.WithTx(tx).Replace(ev.ID, reason, now); err != nil {
				return err
			}
		}
		ev.State = model.EventCanceled
		return nil
	})
	if err != nil {
		return Projection{}, err
	}
	pkg.EventTransitions.WithLabelValues(string(ev.State)).Inc()
	return s.builder.BuildOne(ctx, ev, ShapeFull, ViewWindow{})
}

// UpdateByAdmin 管理员审核：发布、驳回，或在可编辑状态下修改字段
func (s *EventService) UpdateByAdmin(ctx context.Context, eventID uint64, in UpdateEventInput) (Projection, error) {
	now := s.now()
	ev, err := s.events.Transition(ctx, eventID, func(tx *gorm.DB, ev *model.Event) error {
		comments := s.comments.WithTx(tx)
		switch in.StateAction {
		case "":
			return s.applyEdits(ctx, tx, ev, &in, now)
		case ActionPublish:
			if ev.State != model.EventPending && ev.State != model.EventReModeration {
				return illegalTransition(ev, in.StateAction)
			}
			if err := s.applyEdits(ctx, tx, ev, &in, now); err != nil {
				return err
			}
			// 距创建已过去一段时间，发布时重新校验提前量
			if ev.EventDate.Before(now.Add(s.leadTime)) {
				return fmt.Errorf("%w: event id=%d starts at %s, less than %s from now",
					pkg.ErrConditionNotMet, ev.ID, ev.EventDate.Format(pkg.DateTimeLayout), s.leadTime)
			}
			if err := comments.CloseOpen(ev.ID); err != nil {
				return err
			}
			ev.State = model.EventPublished
			ev.PublishedOn = &now
			return nil
		case ActionReject:
			if ev.State != model.EventPending && ev.State != model.EventReModeration {
				return illegalTransition(ev, in.StateAction)
			}
			if err := s.applyEdits(ctx, tx, ev, &in, now); err != nil {
				return err
			}
			if _, err := comments.Replace(ev.ID, textOr(in.Comment, defaultRejectText), now); err != nil {
				return err
			}
			ev.State = model.EventRejected
			return nil
		default:
			return fmt.Errorf("%w: unknown stateAction %q", pkg.ErrInvalidRequest, in.StateAction)
		}
	})
	if err != nil {
		return Projection{}, err
	}
	if in.StateAction != "" {
		pkg.EventTransitions.WithLabelValues(string(ev.State)).Inc()
	}
	return s.builder.BuildOne(ctx, ev, ShapeFull, ViewWindow{})
}

func (s *EventService) SearchAdmin(ctx context.Context, q AdminSearch) ([]Projection, error) {
	f := mysql.AdminFilter{
		Users:      q.Users,
		Categories: q.Categories,
		RangeStart: q.RangeStart,
		RangeEnd:   q.RangeEnd,
	}
	for _, st := range q.States {
		state, ok := model.ParseEventState(st)
		if !ok {
			return nil, fmt.Errorf("%w: unknown state %q", pkg.ErrInvalidRequest, st)
		}
		f.States = append(f.States, state)
	}
	if err := checkRange(q.RangeStart, q.RangeEnd); err != nil {
		return nil, err
	}
	f.Offset, f.Limit = page(q.From, q.Size)
	list, err := s.events.SearchAdmin(ctx, f)
	if err != nil {
		return nil, err
	}
	return s.builder.Build(ctx, list, ShapeFull, ViewWindow{})
}

// SearchPublic 公开检索；按浏览量排序需要先拿全量浏览数再分页
func (s *EventService) SearchPublic(ctx context.Context, q PublicSearch) ([]Projection, error) {
	switch q.Sort {
	case "", SortEventDate, SortViews:
	default:
		return nil, fmt.Errorf("%w: unknown sort %q, want %s or %s", pkg.ErrInvalidRequest, q.Sort, SortEventDate, SortViews)
	}
	if err := checkRange(q.RangeStart, q.RangeEnd); err != nil {
		return nil, err
	}
	from, size := page(q.From, q.Size)
	f := mysql.PublicFilter{
		Text:          q.Text,
		Categories:    q.Categories,
		Paid:          q.Paid,
		RangeStart:    q.RangeStart,
		RangeEnd:      q.RangeEnd,
		OnlyAvailable: q.OnlyAvailable,
		Now:           s.now(),
	}
	if q.Sort != SortViews {
		f.Offset, f.Limit = from, size
	}
	list, err := s.events.SearchPublic(ctx, f)
	if err != nil {
		return nil, err
	}
	out, err := s.builder.Build(ctx, list, ShapeShort, ViewWindow{})
	if err != nil {
		return nil, err
	}
	if q.Sort != SortViews {
		return out, nil
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].views() > out[j].views() })
	if from >= len(out) {
		return []Projection{}, nil
	}
	end := from + size
	if end > len(out) {
		end = len(out)
	}
	return out[from:end], nil
}

// GetPublished 公开详情，只能看到已发布活动
func (s *EventService) GetPublished(ctx context.Context, eventID uint64, w ViewWindow) (Projection, error) {
	ev, err := s.events.FindByID(ctx, eventID)
	if err != nil {
		return Projection{}, err
	}
	if ev.State != model.EventPublished {
		return Projection{}, fmt.Errorf("%w: event id=%d is not published", pkg.ErrNotFound, eventID)
	}
	return s.builder.BuildOne(ctx, ev, ShapeFull, w)
}

// applyEdits 在状态事务内执行，分类校验和确认人数也走同一个事务
func (s *EventService) applyEdits(ctx context.Context, tx *gorm.DB, ev *model.Event, in *UpdateEventInput, now time.Time) error {
	if !in.hasEdits() {
		return nil
	}
	if !ev.State.Editable() {
		return fmt.Errorf("%w: event id=%d is %s and cannot be changed", pkg.ErrConditionNotMet, ev.ID, ev.State)
	}
	if in.CategoryID != nil {
		cats := &mysql.CategoryRepository{DB: tx}
		if _, err := cats.Lock(ctx, *in.CategoryID, mysql.LockShare); err != nil {
			return err
		}
		ev.CategoryID = *in.CategoryID
	}
	if in.EventDate != nil {
		if err := s.checkLeadTime(*in.EventDate, now); err != nil {
			return err
		}
		ev.EventDate = *in.EventDate
	}
	if in.ParticipantLimit != nil {
		if *in.ParticipantLimit < 0 {
			return fmt.Errorf("%w: participantLimit must not be negative", pkg.ErrInvalidRequest)
		}
		// 已取消的活动可能还留着确认名额，上限不能压到确认人数以下
		if *in.ParticipantLimit > 0 {
			confirmed, err := (&mysql.EventRepository{DB: tx}).RealConfirmed(ctx, ev.ID)
			if err != nil {
				return err
			}
			if *in.ParticipantLimit < confirmed {
				return fmt.Errorf("%w: participantLimit %d is below %d confirmed request(s)",
					pkg.ErrConditionNotMet, *in.ParticipantLimit, confirmed)
			}
		}
		ev.ParticipantLimit = *in.ParticipantLimit
	}
	if in.Title != nil {
		ev.Title = *in.Title
	}
	if in.Annotation != nil {
		ev.Annotation = *in.Annotation
	}
	if in.Description != nil {
		ev.Description = *in.Description
	}
	if in.Location != nil {
		ev.Lat, ev.Lon = in.Location.Lat, in.Location.Lon
	}
	if in.Paid != nil {
		ev.Paid = *in.Paid
	}
	if in.RequestModeration != nil {
		ev.RequestModeration = *in.RequestModeration
	}
	return nil
}

// checkLeadTime 活动时间必须严格晚于 now + leadTime
func (s *EventService) checkLeadTime(eventDate, now time.Time) error {
	if !eventDate.After(now.Add(s.leadTime)) {
		return fmt.Errorf("%w: eventDate %s must be more than %s from now",
			pkg.ErrConditionNotMet, eventDate.Format(pkg.DateTimeLayout), s.leadTime)
	}
	return nil
}

func illegalTransition(ev *model.Event, action string) error {
	return fmt.Errorf("%w: cannot %s event id=%d in state %s", pkg.ErrConditionNotMet, action, ev.ID, ev.State)
}

func checkRange(start, end *time.Time) error {
	if start != nil && end != nil && start.After(*end) {
		return fmt.Errorf("%w: rangeStart is after rangeEnd", pkg.ErrInvalidRequest)
	}
	return nil
}

func textOr(s, fallback string) string {
	if s = strings.TrimSpace(s); s != "" {
		return s
	}
	return fallback
}

// page 分页兜底：size 默认 10，上限 100
func page(from, size int) (int, int) {
	if from < 0 {
		from = 0
	}
	if size <= 0 || size > 100 {
		size = 10
	}
	return from, size
}
