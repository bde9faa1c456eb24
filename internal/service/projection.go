package service

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"Ewm_Platform/internal/model"
	"Ewm_Platform/internal/pkg"
	"Ewm_Platform/internal/repository/mysql"
)

// ViewCounter 统计服务的批量查询契约，进程内聚合器和 HTTP 客户端都实现它
type ViewCounter interface {
	CountViewsForMany(ctx context.Context, uris []string, start, end *time.Time, distinct bool) (map[string]int64, error)
}

type Shape int

const (
	ShapeFull Shape = iota
	ShapeShort
	ShapeCommented
)

type CategoryView struct {
	ID   uint64 `json:"id"`
	Name string `json:"name"`
}

type UserShort struct {
	ID   uint64 `json:"id"`
	Name string `json:"name"`
}

type Location struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type CommentView struct {
	ID      uint64       `json:"id"`
	Text    string       `json:"text"`
	Created pkg.DateTime `json:"created"`
}

type EventFull struct {
	ID                uint64           `json:"id"`
	Title             string           `json:"title"`
	Annotation        string           `json:"annotation"`
	Description       string           `json:"description"`
	Category          CategoryView     `json:"category"`
	Initiator         UserShort        `json:"initiator"`
	Location          Location         `json:"location"`
	EventDate         pkg.DateTime     `json:"eventDate"`
	CreatedOn         pkg.DateTime     `json:"createdOn"`
	PublishedOn       *pkg.DateTime    `json:"publishedOn"`
	Paid              bool             `json:"paid"`
	ParticipantLimit  int64            `json:"participantLimit"`
	RequestModeration bool             `json:"requestModeration"`
	State             model.EventState `json:"state"`
	ConfirmedRequests int64            `json:"confirmedRequests"`
	Views             int64            `json:"views"`
	Comment           *CommentView     `json:"comment,omitempty"`
}

type EventShort struct {
	ID                uint64       `json:"id"`
	Title             string       `json:"title"`
	Annotation        string       `json:"annotation"`
	Category          CategoryView `json:"category"`
	Initiator         UserShort    `json:"initiator"`
	EventDate         pkg.DateTime `json:"eventDate"`
	Paid              bool         `json:"paid"`
	ConfirmedRequests int64        `json:"confirmedRequests"`
	Views             int64        `json:"views"`
}

// Projection 按活动状态选出的对外表示；Short 与 Full 二选一，Commented 是带备注的 Full
type Projection struct {
	Shape Shape
	Full  *EventFull
	Short *EventShort
}

func (p Projection) MarshalJSON() ([]byte, error) {
	if p.Shape == ShapeShort {
		return json.Marshal(p.Short)
	}
	return json.Marshal(p.Full)
}

func (p Projection) EventID() uint64 {
	if p.Shape == ShapeShort {
		return p.Short.ID
	}
	return p.Full.ID
}

// Counts 对外展示的确认人数与浏览量
type Counts struct {
	Confirmed int64
	Views     int64
}

// Refs 活动引用的分类与发起人
type Refs struct {
	Category  CategoryView
	Initiator UserShort
}

type shapeRule struct {
	publicCounts bool // 只有已发布活动展示真实计数
	annotated    bool // 有未关闭备注时附带备注
	allowShort   bool
}

var shapeByState = map[model.EventState]shapeRule{
	model.EventPending:      {},
	model.EventReModeration: {annotated: true},
	model.EventRejected:     {annotated: true},
	model.EventCanceled:     {annotated: true},
	model.EventPublished:    {publicCounts: true, allowShort: true},
}

// Render 纯函数：活动 + 计数 + 备注 -> 对外表示
func Render(ev *model.Event, refs Refs, counts Counts, open *model.Comment, want Shape) Projection {
	rule, ok := shapeByState[ev.State]
	if !ok {
		rule = shapeByState[model.EventPending]
	}
	if !rule.publicCounts {
		counts = Counts{}
	}
	if rule.allowShort && want == ShapeShort {
		return Projection{Shape: ShapeShort, Short: &EventShort{
			ID:                ev.ID,
			Title:             ev.Title,
			Annotation:        ev.Annotation,
			Category:          refs.Category,
			Initiator:         refs.Initiator,
			EventDate:         pkg.NewDateTime(ev.EventDate),
			Paid:              ev.Paid,
			ConfirmedRequests: counts.Confirmed,
			Views:             counts.Views,
		}}
	}
	full := &EventFull{
		ID:                ev.ID,
		Title:             ev.Title,
		Annotation:        ev.Annotation,
		Description:       ev.Description,
		Category:          refs.Category,
		Initiator:         refs.Initiator,
		Location:          Location{Lat: ev.Lat, Lon: ev.Lon},
		EventDate:         pkg.NewDateTime(ev.EventDate),
		CreatedOn:         pkg.NewDateTime(ev.CreatedOn),
		PublishedOn:       pkg.NewDateTimePtr(ev.PublishedOn),
		Paid:              ev.Paid,
		ParticipantLimit:  ev.ParticipantLimit,
		RequestModeration: ev.RequestModeration,
		State:             ev.State,
		ConfirmedRequests: counts.Confirmed,
		Views:             counts.Views,
	}
	if rule.annotated && open != nil {
		full.Comment = &CommentView{ID: open.ID, Text: open.Text, Created: pkg.NewDateTime(open.Created)}
		return Projection{Shape: ShapeCommented, Full: full}
	}
	return Projection{Shape: ShapeFull, Full: full}
}

// ViewWindow 浏览量统计窗口，nil 表示不设边界
type ViewWindow struct {
	Start *time.Time
	End   *time.Time
}

// ProjectionBuilder 批量补齐分类、发起人、备注和浏览量后调用 Render
type ProjectionBuilder struct {
	cats     *mysql.CategoryRepository
	users    *mysql.UserRepository
	comments *mysql.CommentRepository
	views    ViewCounter
}

func NewProjectionBuilder(cats *mysql.CategoryRepository, users *mysql.UserRepository, comments *mysql.CommentRepository, views ViewCounter) *ProjectionBuilder {
	return &ProjectionBuilder{cats: cats, users: users, comments: comments, views: views}
}

func (b *ProjectionBuilder) BuildOne(ctx context.Context, ev *model.Event, want Shape, w ViewWindow) (Projection, error) {
	list, err := b.Build(ctx, []model.Event{*ev}, want, w)
	if err != nil {
		return Projection{}, err
	}
	ev.Views = list[0].views()
	return list[0], nil
}

// Build 浏览量只为已发布活动查询，一次分组查询拿全；统计服务不可用时按 0 展示
func (b *ProjectionBuilder) Build(ctx context.Context, events []model.Event, want Shape, w ViewWindow) ([]Projection, error) {
	out := make([]Projection, 0, len(events))
	if len(events) == 0 {
		return out, nil
	}

	var catIDs, userIDs, hidden []uint64
	var uris []string
	for i := range events {
		ev := &events[i]
		catIDs = append(catIDs, ev.CategoryID)
		userIDs = append(userIDs, ev.InitiatorID)
		if ev.State == model.EventPublished {
			uris = append(uris, ev.URI())
		} else {
			hidden = append(hidden, ev.ID)
		}
	}

	cats, err := b.cats.FindByIDs(ctx, catIDs)
	if err != nil {
		return nil, err
	}
	users, err := b.users.FindByIDs(ctx, userIDs)
	if err != nil {
		return nil, err
	}
	comments, err := b.comments.FindOpenByEvents(ctx, hidden)
	if err != nil {
		return nil, err
	}
	views := map[string]int64{}
	if len(uris) > 0 && b.views != nil {
		if views, err = b.views.CountViewsForMany(ctx, uris, w.Start, w.End, false); err != nil {
			log.Printf("views lookup failed, showing 0: %v", err)
			views = map[string]int64{}
		}
	}

	for i := range events {
		ev := &events[i]
		ev.Views = views[ev.URI()]
		refs := Refs{
			Category:  CategoryView{ID: ev.CategoryID, Name: cats[ev.CategoryID].Name},
			Initiator: UserShort{ID: ev.InitiatorID, Name: users[ev.InitiatorID].Name},
		}
		var open *model.Comment
		if c, ok := comments[ev.ID]; ok {
			open = &c
		}
		out = append(out, Render(ev, refs, Counts{Confirmed: ev.ConfirmedRequests, Views: ev.Views}, open, want))
	}
	return out, nil
}

func (p Projection) views() int64 {
	if p.Shape == ShapeShort {
		return p.Short.Views
	}
	return p.Full.Views
}
