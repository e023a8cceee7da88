package handlers

import (
	"net/http"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/plastware/storefront/internal/models"
)

func seedReviewEnv(t *testing.T) (*testEnv, *ReviewHandler) {
	env := newTestEnv(t)
	env.seedUser("alice", "user")
	env.seedUser("bob", "user")
	env.seedUser("root", "admin")
	env.DB.Create(&models.Product{Name: "Drum 60L", Description: "d", Price: 900, Stock: 10, Active: true})
	return env, &ReviewHandler{DB: env.DB}
}

func productRating(t *testing.T, env *testEnv) (float64, int) {
	t.Helper()
	var p models.Product
	require.NoError(t, env.DB.First(&p, 1).Error)
	return p.RatingAvg, p.RatingCount
}

func createReview(t *testing.T, env *testEnv, h *ReviewHandler, userID uint, rating int) models.Review {
	t.Helper()
	rec, c := env.do(http.MethodPost, "/api/reviews", map[string]any{"product_id": 1, "rating": rating, "comment": "solid"})
	asUser(c, userID, "user")
	require.NoError(t, h.Create(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	var review models.Review
	require.NoError(t, env.DB.Where("user_id = ? AND product_id = ?", userID, 1).First(&review).Error)
	return review
}

func approveReview(t *testing.T, env *testEnv, h *ReviewHandler, reviewID uint) {
	t.Helper()
	_, c := env.do(http.MethodPut, "/api/admin/reviews/"+strconv.Itoa(int(reviewID))+"/approve", nil)
	asUser(c, 3, "admin")
	setParam(c, "id", strconv.Itoa(int(reviewID)))
	require.NoError(t, h.Approve(c))
}

func TestReviewNotCountedUntilApproved(t *testing.T) {
	env, h := seedReviewEnv(t)

	review := createReview(t, env, h, 1, 5)
	require.False(t, review.Approved)

	avg, count := productRating(t, env)
	require.Zero(t, avg)
	require.Zero(t, count)

	approveReview(t, env, h, review.ID)

	avg, count = productRating(t, env)
	require.Equal(t, 5.0, avg)
	require.Equal(t, 1, count)
}

func TestRatingAverageRounding(t *testing.T) {
	env, h := seedReviewEnv(t)

	first := createReview(t, env, h, 1, 4)
	second := createReview(t, env, h, 2, 5)
	approveReview(t, env, h, first.ID)
	approveReview(t, env, h, second.ID)

	avg, count := productRating(t, env)
	require.Equal(t, 4.5, avg)
	require.Equal(t, 2, count)
}

func TestDuplicateReviewRejected(t *testing.T) {
	env, h := seedReviewEnv(t)
	createReview(t, env, h, 1, 4)

	_, c := env.do(http.MethodPost, "/api/reviews", map[string]any{"product_id": 1, "rating": 2, "comment": "changed my mind"})
	asUser(c, 1, "user")
	he := requireHTTPError(t, h.Create(c), http.StatusBadRequest)
	require.Contains(t, he.Message, "already reviewed")
}

func TestReviewForUnknownProduct(t *testing.T) {
	env, h := seedReviewEnv(t)

	_, c := env.do(http.MethodPost, "/api/reviews", map[string]any{"product_id": 404, "rating": 3})
	asUser(c, 1, "user")
	requireHTTPError(t, h.Create(c), http.StatusNotFound)
}

func TestEditedReviewGoesBackToModeration(t *testing.T) {
	env, h := seedReviewEnv(t)

	review := createReview(t, env, h, 1, 5)
	approveReview(t, env, h, review.ID)

	newRating := 2
	_, c := env.do(http.MethodPut, "/api/reviews/1", map[string]any{"rating": newRating})
	asUser(c, 1, "user")
	setParam(c, "id", "1")
	require.NoError(t, h.Update(c))

	var updated models.Review
	require.NoError(t, env.DB.First(&updated, review.ID).Error)
	require.Equal(t, newRating, updated.Rating)
	require.False(t, updated.Approved)

	// With its only approved review back in the queue, the product drops to zero.
	avg, count := productRating(t, env)
	require.Zero(t, avg)
	require.Zero(t, count)
}

func TestDeleteReviewRecomputesRating(t *testing.T) {
	env, h := seedReviewEnv(t)

	review := createReview(t, env, h, 1, 5)
	approveReview(t, env, h, review.ID)

	avg, count := productRating(t, env)
	require.Equal(t, 5.0, avg)
	require.Equal(t, 1, count)

	rec, c := env.do(http.MethodDelete, "/api/reviews/1", nil)
	asUser(c, 1, "user")
	setParam(c, "id", "1")
	require.NoError(t, h.Delete(c))
	require.Equal(t, http.StatusNoContent, rec.Code)

	avg, count = productRating(t, env)
	require.Zero(t, avg)
	require.Zero(t, count)
}

func TestDeleteForeignReview(t *testing.T) {
	env, h := seedReviewEnv(t)
	review := createReview(t, env, h, 1, 5)

	// Another user cannot see it, so the scoped lookup 404s.
	_, c := env.do(http.MethodDelete, "/api/reviews/1", nil)
	asUser(c, 2, "user")
	setParam(c, "id", "1")
	requireHTTPError(t, h.Delete(c), http.StatusNotFound)

	// An admin can delete anyone's review.
	_, c = env.do(http.MethodDelete, "/api/reviews/1", nil)
	asUser(c, 3, "admin")
	setParam(c, "id", "1")
	require.NoError(t, h.Delete(c))

	var count int64
	require.NoError(t, env.DB.Model(&models.Review{}).Where("id = ?", review.ID).Count(&count).Error)
	require.Zero(t, count)
}

func TestListForProductOnlyApproved(t *testing.T) {
	env, h := seedReviewEnv(t)

	approved := createReview(t, env, h, 1, 5)
	_ = createReview(t, env, h, 2, 1)
	approveReview(t, env, h, approved.ID)

	rec, c := env.do(http.MethodGet, "/api/products/1/reviews", nil)
	setParam(c, "id", "1")
	require.NoError(t, h.ListForProduct(c))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"total":1`)
}
