package controller

import (
	"errors"
	"institute_backend/internal/model"
	"institute_backend/internal/service"
	"institute_backend/internal/util"
	"strconv"

	"github.com/gin-gonic/gin"
)

type ResultController struct {
	Exams *service.ExamService
	Ranks *service.RankService
}

func NewResultController(exams *service.ExamService, ranks *service.RankService) *ResultController {
	return &ResultController{Exams: exams, Ranks: ranks}
}

// visibleResult 学生只能查看自己的成绩，教师与管理员不受限
func (c *ResultController) visibleResult(ctx *gin.Context) (*model.Result, bool) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return nil, false
	}

	result, err := c.Exams.Result(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		respondError(ctx, err)
		return nil, false
	}

	if user.Role == model.Teacher || user.Role == model.Admin {
		return result, true
	}
	owns, err := c.Exams.Owns(ctx.Request.Context(), user.UserID, result)
	if err != nil {
		util.LogInternalError(ctx, err)
		return nil, false
	}
	if !owns {
		// 不暴露他人成绩是否存在
		util.NotFound(ctx)
		return nil, false
	}
	return result, true
}

// @Summary 获取成绩详情
// @Tags 成绩模块
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "成绩ID"
// @Success 200 {object} util.Response{data=model.Result}
// @Failure 404 {object} util.Response
// @Router /results/{id} [get]
func (c *ResultController) GetResult(ctx *gin.Context) {
	result, ok := c.visibleResult(ctx)
	if !ok {
		return
	}
	util.Success(ctx, result)
}

// @Summary 获取成绩排名
// @Description 暂时查不到排名时 rank 为 null，display 为 N/A
// @Tags 成绩模块
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "成绩ID"
// @Success 200 {object} util.Response
// @Router /results/{id}/rank [get]
func (c *ResultController) GetRank(ctx *gin.Context) {
	result, ok := c.visibleResult(ctx)
	if !ok {
		return
	}

	rank, err := c.Ranks.ComputeRank(ctx.Request.Context(), result)
	if errors.Is(err, service.ErrRankUnavailable) {
		util.Success(ctx, gin.H{"resultId": result.ID, "rank": nil, "display": "N/A"})
		return
	}
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"resultId": result.ID, "rank": rank, "display": strconv.Itoa(rank)})
}

// @Summary 我的成绩记录
// @Tags 成绩模块
// @Produce json
// @Security ApiKeyAuth
// @Param registrationNo query string false "报名号（正式考试）"
// @Success 200 {object} util.Response{data=[]model.Result}
// @Router /results/me [get]
func (c *ResultController) MyResults(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	taker, err := c.Exams.ResolveTaker(ctx.Request.Context(), user.UserID, "", ctx.Query("registrationNo"))
	if err != nil {
		respondError(ctx, err)
		return
	}

	results, err := c.Exams.History(ctx.Request.Context(), taker.Key)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"items": results, "total": len(results)})
}

// @Summary 试卷成绩排行
// @Tags 成绩模块
// @Produce json
// @Security ApiKeyAuth
// @Param testId path string true "试卷ID"
// @Success 200 {object} util.Response{data=[]service.Standing}
// @Router /teacher/tests/{testId}/standings [get]
func (c *ResultController) Standings(ctx *gin.Context) {
	standings, err := c.Ranks.Standings(ctx.Request.Context(), ctx.Param("testId"))
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"items": standings, "total": len(standings)})
}
