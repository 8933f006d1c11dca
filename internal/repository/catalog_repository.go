package repository

import (
	"context"

	"github.com/noah-isme/timeplan-api/internal/models"
)

// CatalogRepository bundles the master-data reads the requirements loader
// needs into one collaborator, delegating to the per-aggregate repositories.
type CatalogRepository struct {
	subjects *SubjectRepository
	teachers *TeacherRepository
	classes  *ClassRepository
	rooms    *RoomRepository
}

// NewCatalogRepository constructs a CatalogRepository.
func NewCatalogRepository(subjects *SubjectRepository, teachers *TeacherRepository, classes *ClassRepository, rooms *RoomRepository) *CatalogRepository {
	return &CatalogRepository{subjects: subjects, teachers: teachers, classes: classes, rooms: rooms}
}

// ListSubjects returns every subject.
func (r *CatalogRepository) ListSubjects(ctx context.Context) ([]models.Subject, error) {
	return r.subjects.ListAll(ctx)
}

// ListTeachers returns every teacher.
func (r *CatalogRepository) ListTeachers(ctx context.Context) ([]models.Teacher, error) {
	return r.teachers.ListAll(ctx)
}

// ListClasses returns every class.
func (r *CatalogRepository) ListClasses(ctx context.Context) ([]models.Class, error) {
	return r.classes.ListAll(ctx)
}

// ListRooms returns every room.
func (r *CatalogRepository) ListRooms(ctx context.Context) ([]models.Room, error) {
	return r.rooms.ListAll(ctx)
}
