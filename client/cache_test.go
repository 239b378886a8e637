package client

import (
	"testing"
	"time"

	"github.com/anjiri1684/teacher_review/models"
	. "github.com/smartystreets/goconvey/convey"
)

func TestCacheSnapshots(t *testing.T) {
	Convey("Given a fresh cache", t, func() {
		cache, err := NewCache(t.TempDir())
		So(err, ShouldBeNil)

		Convey("Nothing is cached initially", func() {
			_, ok := cache.Teachers()
			So(ok, ShouldBeFalse)
			_, ok = cache.Reviews()
			So(ok, ShouldBeFalse)
		})

		Convey("Saved snapshots round-trip in order", func() {
			in := []models.Teacher{
				{ID: "t1", Name: "Dr. A"},
				{ID: "t2", Name: "Dr. B"},
			}
			So(cache.SaveTeachers(in), ShouldBeNil)

			out, ok := cache.Teachers()
			So(ok, ShouldBeTrue)
			So(out, ShouldHaveLength, 2)
			So(out[0].ID, ShouldEqual, "t1")
		})

		Convey("Mutations apply to the cached snapshot", func() {
			So(cache.SaveTeachers([]models.Teacher{{ID: "t1", Name: "Dr. A"}}), ShouldBeNil)
			So(cache.MutateTeachers(func(ts []models.Teacher) []models.Teacher {
				ts[0].Name = "Dr. A-Prime"
				return ts
			}), ShouldBeNil)

			out, _ := cache.Teachers()
			So(out[0].Name, ShouldEqual, "Dr. A-Prime")
		})
	})
}

func TestCachePendingRecords(t *testing.T) {
	Convey("Given a fresh cache", t, func() {
		cache, err := NewCache(t.TempDir())
		So(err, ShouldBeNil)

		Convey("Pending teachers accumulate with their local ids", func() {
			id := NewLocalID()
			So(cache.AddPendingTeacher(PendingTeacher{
				LocalID: id,
				Teacher: models.Teacher{ID: id, Name: "Dr. A"},
			}), ShouldBeNil)

			pending := cache.PendingTeachers()
			So(pending, ShouldHaveLength, 1)
			So(pending[0].LocalID, ShouldEqual, id)
			So(IsLocalID(pending[0].LocalID), ShouldBeTrue)
		})

		Convey("Import history appends in order", func() {
			So(cache.AppendImportRecord(ImportRecord{
				Timestamp: time.Now().UTC(),
				Source:    "teachers.csv",
				Imported:  4,
				Failed:    1,
			}), ShouldBeNil)
			So(cache.AppendImportRecord(ImportRecord{
				Timestamp: time.Now().UTC(),
				Source:    "more.csv",
				Imported:  2,
			}), ShouldBeNil)

			history := cache.ImportHistory()
			So(history, ShouldHaveLength, 2)
			So(history[0].Source, ShouldEqual, "teachers.csv")
			So(history[1].Imported, ShouldEqual, 2)
		})
	})
}

func TestLocalIDs(t *testing.T) {
	Convey("Local ids are unique and recognizable", t, func() {
		a := NewLocalID()
		b := NewLocalID()
		So(a, ShouldNotEqual, b)
		So(IsLocalID(a), ShouldBeTrue)
		So(IsLocalID("550e8400-e29b-41d4-a716-446655440000"), ShouldBeFalse)
	})
}
